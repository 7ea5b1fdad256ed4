package client

import (
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SessionStore", func() {
	var (
		path  string
		store *SessionStore
	)

	BeforeEach(func() {
		path = filepath.Join(GinkgoT().TempDir(), "session.db")
		var err error
		store, err = OpenSessionStore(path)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if store != nil {
			store.Close()
		}
	})

	When("nothing was saved", func() {
		It("should report no session", func() {
			_, err := store.Load()
			Expect(err).To(MatchError(ErrNoSession))
		})
	})

	When("a session was saved", func() {
		BeforeEach(func() {
			Expect(store.Save(Session{
				Email:        "ann@example.com",
				AccessToken:  "access-1",
				RefreshToken: "refresh-1",
			})).To(Succeed())
		})

		It("should load it back", func() {
			session, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(session.Email).To(Equal("ann@example.com"))
			Expect(session.Tokens()).To(Equal(Tokens{AccessToken: "access-1", RefreshToken: "refresh-1"}))
			Expect(session.SavedAt).NotTo(BeZero())
		})

		It("should survive reopening the file", func() {
			Expect(store.Close()).To(Succeed())
			var err error
			store, err = OpenSessionStore(path)
			Expect(err).NotTo(HaveOccurred())

			session, err := store.Load()
			Expect(err).NotTo(HaveOccurred())
			Expect(session.AccessToken).To(Equal("access-1"))
		})

		It("should forget it on Clear", func() {
			Expect(store.Clear()).To(Succeed())
			_, err := store.Load()
			Expect(err).To(MatchError(ErrNoSession))
		})
	})
})
