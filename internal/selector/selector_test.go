package selector_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voxroute/voxroute/internal/circuitbreaker"
	"github.com/voxroute/voxroute/internal/health"
	"github.com/voxroute/voxroute/internal/provider"
	"github.com/voxroute/voxroute/internal/selector"
)

func TestSelector(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Selector Suite")
}

// fixture wires a registry, breaker registry, and monitor the way the
// router does, with in-test control over settings and probe outcomes.
type fixture struct {
	registry *provider.Registry
	breakers *circuitbreaker.Registry
	monitor  *health.Monitor
	selector *selector.Selector
	settings map[string]provider.Settings
}

func newFixture(recoveryTimeout time.Duration) *fixture {
	f := &fixture{settings: make(map[string]provider.Settings)}

	resolver := provider.NewResolver(nil, func(name string) provider.Settings {
		return f.settings[name]
	})
	f.registry = provider.NewRegistry(resolver)
	f.breakers = circuitbreaker.NewRegistry(5, 2, recoveryTimeout)
	f.monitor = health.NewMonitor(f.registry, time.Minute, time.Second, slog.Default())
	f.selector = selector.New(f.registry, f.breakers, f.monitor, slog.Default())
	return f
}

func healthyProbe(ctx context.Context) (bool, string, error) {
	return true, "ok", nil
}

func unhealthyProbe(message string) provider.Probe {
	return func(ctx context.Context) (bool, string, error) {
		return false, message, nil
	}
}

var _ = Describe("Selector", func() {
	var (
		ctx context.Context
		f   *fixture
	)

	BeforeEach(func() {
		ctx = context.Background()
		f = newFixture(time.Hour)
	})

	Describe("Select", func() {
		Context("with two configured healthy providers", func() {
			BeforeEach(func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "alpha", PriorityRank: 1, Probe: healthyProbe,
				})).To(Succeed())
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "beta", PriorityRank: 2, Probe: healthyProbe,
				})).To(Succeed())
			})

			It("should pick the lowest priority rank", func() {
				name, err := f.selector.Select(ctx, selector.Criteria{})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("alpha"))
			})

			It("should fall back when the preferred breaker opens", func() {
				cb := f.breakers.GetBreaker("alpha")
				for i := 0; i < 5; i++ {
					cb.RecordFailure()
				}
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

				name, err := f.selector.Select(ctx, selector.Criteria{})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("beta"))
			})

			It("should not probe a provider excluded by its breaker", func() {
				probed := false
				Expect(f.registry.Register(&provider.Descriptor{
					Name:         "gamma",
					PriorityRank: 0,
					Probe: func(ctx context.Context) (bool, string, error) {
						probed = true
						return true, "ok", nil
					},
				})).To(Succeed())

				cb := f.breakers.GetBreaker("gamma")
				for i := 0; i < 5; i++ {
					cb.RecordFailure()
				}

				_, err := f.selector.Select(ctx, selector.Criteria{PreferHealthCheck: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(probed).To(BeFalse())
			})
		})

		Context("priority tie-break", func() {
			It("should resolve equal ranks by registration order", func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "first", PriorityRank: 1,
				})).To(Succeed())
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "second", PriorityRank: 1,
				})).To(Succeed())

				name, err := f.selector.Select(ctx, selector.Criteria{})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("first"))
			})
		})

		Context("capacity constraints", func() {
			BeforeEach(func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "capped", PriorityRank: 1, MaxInputBytes: 50_000_000,
				})).To(Succeed())
			})

			It("should exclude a provider whose cap is exceeded", func() {
				_, err := f.selector.Select(ctx, selector.Criteria{InputSizeBytes: 60_000_000})
				Expect(err).To(HaveOccurred())

				var noProvider *selector.NoProviderAvailableError
				Expect(err).To(BeAssignableToTypeOf(noProvider))

				exclusions := err.(*selector.NoProviderAvailableError).Exclusions
				Expect(exclusions).To(HaveLen(1))
				Expect(exclusions[0].Provider).To(Equal("capped"))
				Expect(exclusions[0].Reason).To(Equal(selector.ReasonInputSize))
				Expect(exclusions[0].Detail).To(ContainSubstring("input too large"))
			})

			It("should treat a zero cap as unbounded", func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "unbounded", PriorityRank: 2,
				})).To(Succeed())

				name, err := f.selector.Select(ctx, selector.Criteria{InputSizeBytes: 60_000_000})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("unbounded"))
			})
		})

		Context("feature constraints", func() {
			It("should never return a provider missing a required feature", func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name:         "basic",
					PriorityRank: 1,
					Features:     provider.FeatureSet{provider.FeatureTimestamps},
				})).To(Succeed())
				Expect(f.registry.Register(&provider.Descriptor{
					Name:         "full",
					PriorityRank: 2,
					Features: provider.FeatureSet{
						provider.FeatureTimestamps,
						provider.FeatureDiarization,
					},
				})).To(Succeed())

				name, err := f.selector.Select(ctx, selector.Criteria{
					RequiredFeatures: []provider.Feature{provider.FeatureDiarization},
				})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("full"))
			})
		})

		Context("configuration filtering", func() {
			It("should exclude an unconfigured provider without probing it", func() {
				probed := false
				Expect(f.registry.Register(&provider.Descriptor{
					Name:         "needs-key",
					PriorityRank: 1,
					RequiredKeys: []string{"api_key"},
					Probe: func(ctx context.Context) (bool, string, error) {
						probed = true
						return true, "ok", nil
					},
				})).To(Succeed())

				_, err := f.selector.Select(ctx, selector.Criteria{PreferHealthCheck: true})
				Expect(err).To(HaveOccurred())
				Expect(probed).To(BeFalse())

				exclusions := err.(*selector.NoProviderAvailableError).Exclusions
				Expect(exclusions[0].Reason).To(Equal(selector.ReasonConfiguration))
				Expect(exclusions[0].Detail).To(ContainSubstring("api_key"))
			})

			It("should include the provider once configuration appears", func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name:         "needs-key",
					PriorityRank: 1,
					RequiredKeys: []string{"api_key"},
				})).To(Succeed())

				_, err := f.selector.Select(ctx, selector.Criteria{})
				Expect(err).To(HaveOccurred())

				f.settings["needs-key"] = provider.Settings{"api_key": "k"}
				name, err := f.selector.Select(ctx, selector.Criteria{})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("needs-key"))
			})
		})

		Context("health filtering", func() {
			It("should skip unhealthy providers when health is required", func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "sick", PriorityRank: 1, Probe: unhealthyProbe("api down"),
				})).To(Succeed())
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "well", PriorityRank: 2, Probe: healthyProbe,
				})).To(Succeed())

				name, err := f.selector.Select(ctx, selector.Criteria{PreferHealthCheck: true})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("well"))
			})

			It("should ignore health when not requested", func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "sick", PriorityRank: 1, Probe: unhealthyProbe("api down"),
				})).To(Succeed())

				name, err := f.selector.Select(ctx, selector.Criteria{})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("sick"))
			})

			It("should report the unhealthy reason in the terminal error", func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "sick", PriorityRank: 1, Probe: unhealthyProbe("api down"),
				})).To(Succeed())

				_, err := f.selector.Select(ctx, selector.Criteria{PreferHealthCheck: true})
				Expect(err).To(HaveOccurred())

				exclusions := err.(*selector.NoProviderAvailableError).Exclusions
				Expect(exclusions[0].Reason).To(Equal(selector.ReasonHealth))
				Expect(exclusions[0].Detail).To(ContainSubstring("api down"))
			})
		})

		Context("with an explicit backend", func() {
			BeforeEach(func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "alpha", PriorityRank: 1, Probe: healthyProbe,
				})).To(Succeed())
				Expect(f.registry.Register(&provider.Descriptor{
					Name:         "beta",
					PriorityRank: 2,
					RequiredKeys: []string{"api_key"},
				})).To(Succeed())
			})

			It("should return the requested provider when it qualifies", func() {
				name, err := f.selector.Select(ctx, selector.Criteria{ExplicitBackend: "alpha"})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("alpha"))
			})

			It("should fail for an unknown name", func() {
				_, err := f.selector.Select(ctx, selector.Criteria{ExplicitBackend: "nonexistent"})

				var unknown *provider.UnknownBackendError
				Expect(err).To(BeAssignableToTypeOf(unknown))
			})

			It("should hard-fail instead of falling back", func() {
				_, err := f.selector.Select(ctx, selector.Criteria{ExplicitBackend: "beta"})

				var missing *provider.MissingRequiredConfigError
				Expect(err).To(BeAssignableToTypeOf(missing))
			})

			It("should reject an open breaker with CircuitOpenError", func() {
				cb := f.breakers.GetBreaker("alpha")
				for i := 0; i < 5; i++ {
					cb.RecordFailure()
				}

				_, err := f.selector.Select(ctx, selector.Criteria{ExplicitBackend: "alpha"})

				var open *circuitbreaker.CircuitOpenError
				Expect(err).To(BeAssignableToTypeOf(open))
			})

			It("should reject an oversized input with InputTooLargeError", func() {
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "capped", PriorityRank: 3, MaxInputBytes: 1000,
				})).To(Succeed())

				_, err := f.selector.Select(ctx, selector.Criteria{
					ExplicitBackend: "capped",
					InputSizeBytes:  2000,
				})

				var tooLarge *selector.InputTooLargeError
				Expect(err).To(BeAssignableToTypeOf(tooLarge))
			})
		})

		Context("breaker recovery", func() {
			It("should admit an explicit request as the half-open trial after the recovery timeout", func() {
				f = newFixture(100 * time.Millisecond)
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "alpha", PriorityRank: 1,
				})).To(Succeed())

				cb := f.breakers.GetBreaker("alpha")
				for i := 0; i < 5; i++ {
					cb.RecordFailure()
				}
				Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))

				_, err := f.selector.Select(ctx, selector.Criteria{ExplicitBackend: "alpha"})
				Expect(err).To(HaveOccurred())

				time.Sleep(150 * time.Millisecond)

				name, err := f.selector.Select(ctx, selector.Criteria{ExplicitBackend: "alpha"})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("alpha"))
				Expect(cb.State()).To(Equal(circuitbreaker.StateHalfOpen))

				cb.RecordSuccess()
				_, err = f.selector.Select(ctx, selector.Criteria{ExplicitBackend: "alpha"})
				Expect(err).NotTo(HaveOccurred())
				cb.RecordSuccess()
				Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
			})

			It("should exclude a half-open provider while its trial is in flight", func() {
				f = newFixture(50 * time.Millisecond)
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "alpha", PriorityRank: 1,
				})).To(Succeed())
				Expect(f.registry.Register(&provider.Descriptor{
					Name: "beta", PriorityRank: 2,
				})).To(Succeed())

				cb := f.breakers.GetBreaker("alpha")
				for i := 0; i < 5; i++ {
					cb.RecordFailure()
				}
				time.Sleep(80 * time.Millisecond)

				// First selection claims the trial on alpha.
				name, err := f.selector.Select(ctx, selector.Criteria{})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("alpha"))

				// Second selection must fall through to beta.
				name, err = f.selector.Select(ctx, selector.Criteria{})
				Expect(err).NotTo(HaveOccurred())
				Expect(name).To(Equal("beta"))
			})
		})

		Context("with nothing registered", func() {
			It("should fail with an empty exclusion list", func() {
				_, err := f.selector.Select(ctx, selector.Criteria{})

				var noProvider *selector.NoProviderAvailableError
				Expect(err).To(BeAssignableToTypeOf(noProvider))
				Expect(err.Error()).To(ContainSubstring("none registered"))
			})
		})
	})

	Describe("ValidateForInput", func() {
		BeforeEach(func() {
			Expect(f.registry.Register(&provider.Descriptor{
				Name: "capped", MaxInputBytes: 1000,
			})).To(Succeed())
		})

		It("should accept input within the cap", func() {
			Expect(f.selector.ValidateForInput("capped", 500)).To(Succeed())
		})

		It("should reject oversized input", func() {
			err := f.selector.ValidateForInput("capped", 2000)

			var tooLarge *selector.InputTooLargeError
			Expect(err).To(BeAssignableToTypeOf(tooLarge))
			Expect(err.(*selector.InputTooLargeError).MaxBytes).To(Equal(int64(1000)))
		})

		It("should fail for an unknown provider", func() {
			var unknown *provider.UnknownBackendError
			Expect(f.selector.ValidateForInput("nonexistent", 1)).To(BeAssignableToTypeOf(unknown))
		})
	})
})
