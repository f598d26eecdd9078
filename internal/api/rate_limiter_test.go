package api_test

import (
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codequery/internal/api"
)

var _ = Describe("RateLimiter", func() {
	It("should allow a burst and then refuse", func() {
		rl := api.NewRateLimiter(1, 2)
		Expect(rl.Allow("10.0.0.1")).To(BeTrue())
		Expect(rl.Allow("10.0.0.1")).To(BeTrue())
		Expect(rl.Allow("10.0.0.1")).To(BeFalse())
		Expect(rl.Allow("10.0.0.2")).To(BeTrue())
	})

	// Given a limiter with a burst of one
	// When the same client sends two database requests
	// Then the second is refused before reaching the handler
	It("should answer 429 from the middleware", func() {
		calls := 0
		h := api.NewRateLimiter(1, 1).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))

		for i := 0; i < 2; i++ {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/summary", nil)
			req.RemoteAddr = "127.0.0.1:50000"
			h.ServeHTTP(rec, req)
			if i == 1 {
				Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
			}
		}
		Expect(calls).To(Equal(1))
	})
})
