package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/okian/armpredict/internal/config"
	"github.com/okian/armpredict/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func setEnv(kv map[string]string) func() {
	for k, v := range kv {
		_ = os.Setenv(k, v)
	}
	return func() {
		for k := range kv {
			_ = os.Unsetenv(k)
		}
	}
}

func TestMainConfiguration(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		restore := setEnv(map[string]string{
			"ARMPREDICT_DOTENV":              "/non/existent/.env",
			"ARMPREDICT_ADDR":                ":8181",
			"ARMPREDICT_REVIEW_QUEUE_SIZE":   "32",
			"ARMPREDICT_REVIEW_WORKER_COUNT": "2",
		})
		defer restore()

		convey.Convey("When configuration is loaded", func() {
			cfg, err := config.Load(context.Background())

			convey.Convey("Then the overrides are applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8181")
				convey.So(cfg.ReviewQueueSize, convey.ShouldEqual, 32)
				convey.So(cfg.ReviewWorkerCount, convey.ShouldEqual, 2)
			})

			convey.Convey("And a service built from it reports the same sizes", func() {
				svc := newService(cfg, logger.Nop())
				stats := svc.GetStats()
				convey.So(stats["workerCount"], convey.ShouldEqual, 2)
				convey.So(stats["queueCapacity"], convey.ShouldEqual, 32)
				convey.So(stats["started"], convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given an empty listen address", t, func() {
		restore := setEnv(map[string]string{
			"ARMPREDICT_DOTENV": "/non/existent/.env",
			"ARMPREDICT_ADDR":   "",
		})
		defer restore()

		convey.Convey("Then loading fails", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func TestMainApplyLogging(t *testing.T) {
	convey.Convey("Given an invalid log level", t, func() {
		cfg := config.New(context.Background())
		cfg.LogLevel = "loud"

		convey.Convey("Then applying it does not panic", func() {
			convey.So(func() { applyLogging(context.Background(), cfg) }, convey.ShouldNotPanic)
		})
	})
}

func TestMainHandler(t *testing.T) {
	convey.Convey("Given a started service behind the full handler", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.ReviewWorkerCount = 1

		svc := newService(cfg, logger.Nop())
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newHandler(ctx, cfg, svc))
		defer srv.Close()

		convey.Convey("When /stats is requested", func() {
			resp, err := http.Get(srv.URL + "/stats")
			convey.So(err, convey.ShouldBeNil)
			defer func() { _ = resp.Body.Close() }()

			var stats map[string]any
			convey.So(json.NewDecoder(resp.Body).Decode(&stats), convey.ShouldBeNil)

			convey.Convey("Then the running service is reported", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
				convey.So(stats["started"], convey.ShouldEqual, true)
				convey.So(stats["workerCount"], convey.ShouldEqual, float64(1))
			})
		})

		convey.Convey("When the OpenAPI document is requested", func() {
			resp, err := http.Get(srv.URL + "/openapi.yaml")
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then it is served", func() {
				convey.So(resp.StatusCode, convey.ShouldEqual, http.StatusOK)
			})
		})

		convey.Convey("When a browser sends a preflight request", func() {
			req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/analysis", nil)
			req.Header.Set("Origin", "http://localhost:3000")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := http.DefaultClient.Do(req)
			convey.So(err, convey.ShouldBeNil)
			_ = resp.Body.Close()

			convey.Convey("Then the origin is allowed", func() {
				convey.So(resp.Header.Get("Access-Control-Allow-Origin"), convey.ShouldEqual, "*")
			})
		})
	})
}

func TestServiceMetricsUpdater(t *testing.T) {
	convey.Convey("Given a service and a short-lived context", t, func() {
		svc := newService(config.New(context.Background()), logger.Nop())
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		convey.Convey("Then the updater returns when the context ends", func() {
			done := make(chan struct{})
			go func() {
				startServiceMetricsUpdater(ctx, svc)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			convey.So(ctx.Err(), convey.ShouldNotBeNil)
		})
	})
}
