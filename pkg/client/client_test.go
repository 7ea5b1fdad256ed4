package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"

	"splay/domain"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  true,
		"message": "ok",
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, status int, message, errText, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  false,
		"message": message,
		"error":   errText,
		"code":    code,
	})
}

var authResponse = domain.AuthResponse{
	User: domain.UserResponse{ID: "u-1", Email: "ann@example.com", Name: "Ann"},
	Tokens: domain.TokenResponse{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "bearer",
		ExpiresIn:    900,
	},
}

var _ = Describe("Client", func() {
	var (
		server   *httptest.Server
		mux      *http.ServeMux
		client   *Client
		ctx      context.Context
		requests atomic.Int32
	)

	BeforeEach(func() {
		ctx = context.Background()
		requests.Store(0)
		mux = http.NewServeMux()
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer GinkgoRecover()
			requests.Add(1)
			mux.ServeHTTP(w, r)
		}))
		client = New(server.URL)
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Register", func() {
		var (
			input RegisterInput
			res   *domain.AuthResponse
			err   error
		)

		BeforeEach(func() {
			input = RegisterInput{
				Name:            "Ann",
				Email:           "ann@example.com",
				Password:        "password123",
				ConfirmPassword: "password123",
			}
			mux.HandleFunc("POST /api/v1/auth/register", func(w http.ResponseWriter, r *http.Request) {
				var req domain.RegisterRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				if req.Email == "taken@example.com" {
					writeError(w, http.StatusBadRequest, "failed to register user", "Email already registered", "EMAIL_EXISTS")
					return
				}
				writeData(w, http.StatusCreated, authResponse)
			})
		})

		JustBeforeEach(func() {
			res, err = client.Register(ctx, input)
		})

		When("the form is valid", func() {
			It("should return the user", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(res.User.Email).To(Equal("ann@example.com"))
			})

			It("should keep the tokens", func() {
				Expect(client.Tokens()).To(Equal(Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}))
			})
		})

		When("a field is empty", func() {
			BeforeEach(func() {
				input.Name = "  "
			})

			It("should fail without calling the API", func() {
				Expect(err).To(MatchError(ErrMissingFields))
				Expect(requests.Load()).To(BeZero())
			})
		})

		When("the passwords differ", func() {
			BeforeEach(func() {
				input.ConfirmPassword = "password124"
			})

			It("should fail without calling the API", func() {
				Expect(err).To(MatchError(ErrPasswordMismatch))
				Expect(requests.Load()).To(BeZero())
			})
		})

		When("the password is too short", func() {
			BeforeEach(func() {
				input.Password = "short"
				input.ConfirmPassword = "short"
			})

			It("should fail without calling the API", func() {
				Expect(err).To(MatchError(ErrPasswordTooShort))
				Expect(requests.Load()).To(BeZero())
			})
		})

		When("the email is taken", func() {
			BeforeEach(func() {
				input.Email = "taken@example.com"
			})

			It("should return the API error", func() {
				var apiErr *APIError
				Expect(err).To(BeAssignableToTypeOf(apiErr))
				apiErr = err.(*APIError)
				Expect(apiErr.Status).To(Equal(http.StatusBadRequest))
				Expect(apiErr.Code).To(Equal("EMAIL_EXISTS"))
				Expect(apiErr.Message).To(Equal("Email already registered"))
			})
		})
	})

	Describe("Login and authenticated calls", func() {
		BeforeEach(func() {
			mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
				writeData(w, http.StatusOK, authResponse)
			})
			mux.HandleFunc("GET /api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("Authorization") != "Bearer access-1" {
					writeError(w, http.StatusUnauthorized, "Could not validate credentials", "token invalid", "INVALID_TOKEN")
					return
				}
				writeData(w, http.StatusOK, authResponse.User)
			})
			mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
				var req domain.RefreshTokenRequest
				Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
				Expect(req.RefreshToken).To(Equal("refresh-1"))
				writeData(w, http.StatusOK, domain.TokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2"})
			})
		})

		It("should refuse authenticated calls before login", func() {
			_, err := client.Me(ctx)
			Expect(err).To(MatchError(ErrNotLoggedIn))
			Expect(requests.Load()).To(BeZero())
		})

		It("should send the bearer token after login", func() {
			_, err := client.Login(ctx, "ann@example.com", "password123")
			Expect(err).NotTo(HaveOccurred())

			me, err := client.Me(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(me.ID).To(Equal("u-1"))
		})

		It("should replace the tokens on refresh", func() {
			client.SetTokens(Tokens{AccessToken: "old", RefreshToken: "refresh-1"})
			tokens, err := client.Refresh(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(tokens.AccessToken).To(Equal("access-2"))
			Expect(client.Tokens()).To(Equal(tokens))
		})
	})

	Describe("Scans", func() {
		BeforeEach(func() {
			client.SetTokens(Tokens{AccessToken: "access-1"})
		})

		It("should upload the image as the file field", func() {
			mux.HandleFunc("POST /api/v1/scans", func(w http.ResponseWriter, r *http.Request) {
				file, header, err := r.FormFile("file")
				Expect(err).NotTo(HaveOccurred())
				defer file.Close()
				data, _ := io.ReadAll(file)
				Expect(string(data)).To(Equal("png-bytes"))
				Expect(header.Filename).To(Equal("room.png"))
				Expect(header.Header.Get("Content-Type")).To(Equal("image/png"))
				writeData(w, http.StatusCreated, domain.ScanResponse{ID: "scan-1", Status: StatusProcessing})
			})

			id, err := client.CreateScan(ctx, "/tmp/photos/room.png", strings.NewReader("png-bytes"))
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("scan-1"))
		})

		It("should surface the quota error", func() {
			mux.HandleFunc("POST /api/v1/scans", func(w http.ResponseWriter, r *http.Request) {
				writeError(w, http.StatusTooManyRequests, "failed to create scan", "Monthly scan limit reached", "SCAN_QUOTA_EXCEEDED")
			})

			_, err := client.CreateScan(ctx, "room.jpg", strings.NewReader("x"))
			var apiErr *APIError
			Expect(err).To(BeAssignableToTypeOf(apiErr))
			Expect(err.(*APIError).Code).To(Equal("SCAN_QUOTA_EXCEEDED"))
		})

		It("should list with skip and limit", func() {
			mux.HandleFunc("GET /api/v1/scans", func(w http.ResponseWriter, r *http.Request) {
				Expect(r.URL.Query().Get("skip")).To(Equal("20"))
				Expect(r.URL.Query().Get("limit")).To(Equal("10"))
				writeData(w, http.StatusOK, domain.ScanListResponse{
					Scans: []domain.ScanListItemResponse{{ID: "scan-1", Status: StatusDone, ItemCount: 3}},
					Total: 21,
					Skip:  20,
					Limit: 10,
				})
			})

			list, err := client.ListScans(ctx, 20, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(list.Total).To(Equal(int64(21)))
			Expect(list.Scans).To(HaveLen(1))
		})

		It("should treat 204 as a successful delete", func() {
			mux.HandleFunc("DELETE /api/v1/scans/scan-1", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
			Expect(client.DeleteScan(ctx, "scan-1")).To(Succeed())
		})

		It("should use the status text when the body is not an envelope", func() {
			mux.HandleFunc("GET /api/v1/scans/scan-1", func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			})
			_, err := client.GetScan(ctx, "scan-1")
			Expect(err).To(MatchError(ContainSubstring("Bad Gateway")))
		})
	})
})
