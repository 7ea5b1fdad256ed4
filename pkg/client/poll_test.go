package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"

	"splay/domain"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PollScan", func() {
	var (
		server  *httptest.Server
		client  *Client
		calls   atomic.Int32
		answers []func(w http.ResponseWriter)
		opts    PollOptions
		ctx     context.Context
		cancel  context.CancelFunc
		scan    *domain.ScanResponse
		err     error
	)

	processing := func(w http.ResponseWriter) {
		writeData(w, http.StatusOK, domain.ScanResponse{ID: "scan-1", Status: StatusProcessing})
	}
	done := func(w http.ResponseWriter) {
		writeData(w, http.StatusOK, domain.ScanResponse{ID: "scan-1", Status: StatusDone, ItemCount: 3})
	}
	unavailable := func(w http.ResponseWriter) {
		writeError(w, http.StatusServiceUnavailable, "failed", "upstream down", "")
	}

	BeforeEach(func() {
		calls.Store(0)
		answers = nil
		opts = PollOptions{Interval: time.Millisecond, MaxInterval: 4 * time.Millisecond, MaxRetries: 2}
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := int(calls.Add(1)) - 1
			if n >= len(answers) {
				n = len(answers) - 1
			}
			answers[n](w)
		}))
		client = New(server.URL, WithTokens(Tokens{AccessToken: "access-1"}))
	})

	AfterEach(func() {
		cancel()
		server.Close()
	})

	JustBeforeEach(func() {
		scan, err = client.PollScan(ctx, "scan-1", opts)
	})

	When("the scan finishes", func() {
		var updates int

		BeforeEach(func() {
			updates = 0
			opts.OnUpdate = func(*domain.ScanResponse) { updates++ }
			answers = []func(http.ResponseWriter){processing, processing, done}
		})

		It("should return the finished scan", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(scan.Status).To(Equal(StatusDone))
			Expect(scan.ItemCount).To(Equal(3))
		})

		It("should report every state it saw", func() {
			Expect(calls.Load()).To(Equal(int32(3)))
			Expect(updates).To(Equal(3))
		})
	})

	When("the scan fails", func() {
		BeforeEach(func() {
			answers = []func(http.ResponseWriter){processing, func(w http.ResponseWriter) {
				writeData(w, http.StatusOK, domain.ScanResponse{ID: "scan-1", Status: StatusFailed, Error: "model unavailable"})
			}}
		})

		It("should return the failed scan without an error", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(scan.Status).To(Equal(StatusFailed))
			Expect(scan.Error).To(Equal("model unavailable"))
		})
	})

	When("the server has transient failures", func() {
		BeforeEach(func() {
			answers = []func(http.ResponseWriter){unavailable, processing, unavailable, unavailable, done}
		})

		It("should retry them", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(scan.Status).To(Equal(StatusDone))
		})
	})

	When("transient failures exceed the retry budget", func() {
		BeforeEach(func() {
			answers = []func(http.ResponseWriter){unavailable}
		})

		It("should give up with the last error", func() {
			var apiErr *APIError
			Expect(err).To(BeAssignableToTypeOf(apiErr))
			Expect(err.(*APIError).Status).To(Equal(http.StatusServiceUnavailable))
			Expect(calls.Load()).To(Equal(int32(3)))
		})
	})

	When("the scan is not found", func() {
		BeforeEach(func() {
			answers = []func(http.ResponseWriter){func(w http.ResponseWriter) {
				writeError(w, http.StatusNotFound, "failed to retrieve scan", "Scan not found", "SCAN_NOT_FOUND")
			}}
		})

		It("should stop at once", func() {
			Expect(err).To(MatchError(ContainSubstring("Scan not found")))
			Expect(calls.Load()).To(Equal(int32(1)))
		})
	})

	When("the context ends first", func() {
		BeforeEach(func() {
			answers = []func(http.ResponseWriter){processing}
			cancel()
			ctx, cancel = context.WithTimeout(context.Background(), 30*time.Millisecond)
		})

		It("should return the context error", func() {
			Expect(err).To(MatchError(context.DeadlineExceeded))
			Expect(scan).To(BeNil())
		})
	})
})

var _ = Describe("PollOptions", func() {
	It("should fill in the defaults", func() {
		o := PollOptions{}.withDefaults()
		Expect(o.Interval).To(Equal(time.Second))
		Expect(o.MaxInterval).To(Equal(5 * time.Second))
		Expect(o.Factor).To(Equal(1.5))
		Expect(o.MaxRetries).To(Equal(3))
	})

	It("should allow disabling retries", func() {
		Expect(PollOptions{MaxRetries: -1}.withDefaults().MaxRetries).To(BeZero())
	})
})
