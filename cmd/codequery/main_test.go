package main

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"codequery/internal/core"
)

var _ = Describe("listen", func() {
	// Given a port already in use
	// When the server binds starting from that port
	// Then it moves on to a later free port
	It("should skip a busy port", func() {
		busy, err := net.Listen("tcp", ":0")
		Expect(err).NotTo(HaveOccurred())
		defer busy.Close()
		port := busy.Addr().(*net.TCPAddr).Port

		ln, got, err := listen(port, 20)
		Expect(err).NotTo(HaveOccurred())
		defer ln.Close()
		Expect(got).To(BeNumerically(">", port))
	})

	It("should fail when every attempt is busy", func() {
		busy, err := net.Listen("tcp", ":0")
		Expect(err).NotTo(HaveOccurred())
		defer busy.Close()
		port := busy.Addr().(*net.TCPAddr).Port

		_, _, err = listen(port, 1)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("maskPasswords", func() {
	It("should mask passwords without touching the input", func() {
		s := core.DefaultSettings()
		s.Connections = []core.ConnectionProfile{{Name: "a", Password: "secret"}, {Name: "b"}}

		masked := maskPasswords(s)
		Expect(masked.Connections[0].Password).To(Equal(maskedPassword))
		Expect(masked.Connections[1].Password).To(BeEmpty())
		Expect(s.Connections[0].Password).To(Equal("secret"))
	})
})
