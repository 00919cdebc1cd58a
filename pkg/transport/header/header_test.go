package header

import (
	"net/http"
	"net/http/httptest"

	"github.com/gofiber/fiber/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handler", func() {
	var (
		app *fiber.App
		hh  *Handler
	)

	BeforeEach(func() {
		app = fiber.New()
		hh = NewHandler()
	})

	AfterEach(func() {
		_ = app.Shutdown()
	})

	Describe("ForwardedRequestHeaders", func() {
		var got http.Header

		BeforeEach(func() {
			got = nil
			app.Post("/test", func(c *fiber.Ctx) error {
				got = hh.ForwardedRequestHeaders(c)
				return c.SendStatus(fiber.StatusOK)
			})
		})

		send := func(set map[string]string) {
			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			for k, v := range set {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
		}

		It("forwards end-to-end metadata", func() {
			send(map[string]string{
				"X-Request-Id": "req-1",
				"User-Agent":   "haven-cli",
			})

			Expect(got.Get("X-Request-Id")).To(Equal("req-1"))
			Expect(got.Get("User-Agent")).To(Equal("haven-cli"))
		})

		It("keeps client credentials and routing on the client leg", func() {
			send(map[string]string{
				"Authorization": "Bearer client-token",
				"Cookie":        "sid=1",
				UserHeader:      "alex",
			})

			Expect(got).NotTo(HaveKey("Authorization"))
			Expect(got).NotTo(HaveKey("Cookie"))
			Expect(got).NotTo(HaveKey(UserHeader))
		})

		It("strips hop-by-hop and encoding headers", func() {
			send(map[string]string{
				"Connection":      "keep-alive",
				"Accept-Encoding": "br",
				"Content-Type":    "application/json",
			})

			Expect(got).NotTo(HaveKey("Connection"))
			Expect(got).NotTo(HaveKey("Accept-Encoding"))
			Expect(got).NotTo(HaveKey("Content-Type"))
			Expect(got).NotTo(HaveKey("Host"))
		})
	})

	Describe("User", func() {
		var user string

		BeforeEach(func() {
			app.Get("/who", func(c *fiber.Ctx) error {
				user = hh.User(c)
				return c.SendStatus(fiber.StatusOK)
			})
		})

		It("reads the user header", func() {
			req := httptest.NewRequest(http.MethodGet, "/who", nil)
			req.Header.Set(UserHeader, "alex")
			resp, err := app.Test(req)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(user).To(Equal("alex"))
		})

		It("defaults to the local user", func() {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/who", nil))
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			Expect(user).To(Equal(DefaultUser))
		})
	})
})

var _ = Describe("Apply", func() {
	It("adds forwarded headers without overriding existing ones", func() {
		req, _ := http.NewRequest(http.MethodPost, "http://gateway/v1/chat/completions", nil)
		req.Header.Set("Authorization", "Bearer gateway-key")

		Apply(http.Header{
			"X-Request-Id":  {"req-9"},
			"Authorization": {"Bearer client"},
		}, req)

		Expect(req.Header.Get("X-Request-Id")).To(Equal("req-9"))
		Expect(req.Header.Get("Authorization")).To(Equal("Bearer gateway-key"))
	})
})
