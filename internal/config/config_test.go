package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/okian/armpredict/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ReviewQueueSize, convey.ShouldEqual, 256)
			convey.So(cfg.ReviewWorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.TopFactors, convey.ShouldEqual, 3)
			convey.So(cfg.DefaultMatchArm, convey.ShouldEqual, "Right")
			convey.So(cfg.ReviewTimeout(), convey.ShouldEqual, 90*time.Second)
			convey.So(cfg.SessionTTL(), convey.ShouldEqual, 30*time.Minute)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty addr", func(c *config.Config) { c.Addr = "" }, "addr must not be empty"},
		{"empty upstream", func(c *config.Config) { c.UpstreamBaseURL = "" }, "upstream_base_url"},
		{"zero upstream timeout", func(c *config.Config) { c.UpstreamTimeoutMS = 0 }, "upstream_timeout_ms"},
		{"negative review timeout", func(c *config.Config) { c.ReviewTimeoutMS = -1 }, "review_timeout_ms"},
		{"zero session ttl", func(c *config.Config) { c.SessionTTLMS = 0 }, "session_ttl_ms"},
		{"zero top factors", func(c *config.Config) { c.TopFactors = 0 }, "top_factors"},
	}

	convey.Convey("Given invalid configs", t, func() {
		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				cfg := config.New(context.Background())
				tc.mutate(cfg)
				err := cfg.Validate()

				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, tc.want)
			})
		}
	})
}
