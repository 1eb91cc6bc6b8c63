package env_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sethvargo/go-envconfig"

	"github.com/luma/heosbridge/internal/env"
)

var _ = Describe("env", func() {
	Describe("ProcessConfig()", func() {
		It("applies defaults", func() {
			conf, err := env.ProcessConfig(context.Background(), envconfig.MapLookuper(map[string]string{}))
			Expect(err).To(Succeed())

			Expect(conf.Port).To(Equal(1255))
			Expect(conf.HeartbeatInterval).To(Equal(80 * time.Second))
			Expect(conf.RetryInterval).To(Equal(5 * time.Second))
			Expect(conf.InitialDelay).To(Equal(10 * time.Second))
			Expect(conf.RedisAddr).To(BeEmpty())
			Expect(conf.RedisPrefix).To(Equal("heos"))
		})

		It("reads HEOS_ variables", func() {
			conf, err := env.ProcessConfig(context.Background(), envconfig.MapLookuper(map[string]string{
				"HEOS_HOST":           "192.168.1.21",
				"HEOS_PORT":           "1256",
				"HEOS_HEARTBEAT":      "30s",
				"HEOS_USERNAME":       "user@example.com",
				"HEOS_REDIS_ADDR":     "localhost:6379",
				"HEOS_RETRY_INTERVAL": "1s",
			}))
			Expect(err).To(Succeed())

			Expect(conf.Host).To(Equal("192.168.1.21"))
			Expect(conf.Port).To(Equal(1256))
			Expect(conf.HeartbeatInterval).To(Equal(30 * time.Second))
			Expect(conf.RetryInterval).To(Equal(time.Second))
			Expect(conf.Username).To(Equal("user@example.com"))
			Expect(conf.RedisAddr).To(Equal("localhost:6379"))
		})

		It("rejects malformed values", func() {
			_, err := env.ProcessConfig(context.Background(), envconfig.MapLookuper(map[string]string{
				"HEOS_HEARTBEAT": "often",
			}))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("MakeLogger()", func() {
		It("builds production and debug loggers", func() {
			log, err := env.MakeLogger(false)
			Expect(err).To(Succeed())
			Expect(log).NotTo(BeNil())

			debug, err := env.MakeLogger(true)
			Expect(err).To(Succeed())
			Expect(debug.Core().Enabled(-1)).To(BeTrue())
		})
	})
})
