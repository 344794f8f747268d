package circuitbreaker_test

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voxroute/voxroute/internal/circuitbreaker"
)

var _ = Describe("Registry", func() {
	var registry *circuitbreaker.Registry

	BeforeEach(func() {
		registry = circuitbreaker.NewRegistry(5, 2, 30*time.Second)
	})

	Describe("GetBreaker", func() {
		It("should create a breaker on first reference", func() {
			cb := registry.GetBreaker("deepgram")
			Expect(cb).NotTo(BeNil())
			Expect(cb.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should return the same breaker for the same provider", func() {
			first := registry.GetBreaker("deepgram")
			second := registry.GetBreaker("deepgram")
			Expect(first).To(BeIdenticalTo(second))
		})

		It("should keep providers isolated", func() {
			deepgram := registry.GetBreaker("deepgram")
			whisper := registry.GetBreaker("whisper")
			Expect(deepgram).NotTo(BeIdenticalTo(whisper))

			for i := 0; i < 5; i++ {
				deepgram.RecordFailure()
			}
			Expect(deepgram.State()).To(Equal(circuitbreaker.StateOpen))
			Expect(whisper.State()).To(Equal(circuitbreaker.StateClosed))
		})

		It("should be safe under concurrent first references", func() {
			var wg sync.WaitGroup
			breakers := make([]*circuitbreaker.CircuitBreaker, 10)

			for i := 0; i < 10; i++ {
				wg.Add(1)
				go func(idx int) {
					defer wg.Done()
					breakers[idx] = registry.GetBreaker("elevenlabs")
				}(i)
			}
			wg.Wait()

			for _, cb := range breakers {
				Expect(cb).To(BeIdenticalTo(breakers[0]))
			}
		})
	})

	Describe("Stats", func() {
		It("should report the state of every breaker", func() {
			registry.GetBreaker("deepgram")
			whisper := registry.GetBreaker("whisper")
			for i := 0; i < 5; i++ {
				whisper.RecordFailure()
			}

			stats := registry.Stats()
			Expect(stats).To(HaveKeyWithValue("deepgram", circuitbreaker.StateClosed))
			Expect(stats).To(HaveKeyWithValue("whisper", circuitbreaker.StateOpen))
		})
	})

	Describe("Snapshots", func() {
		It("should include counters", func() {
			cb := registry.GetBreaker("deepgram")
			cb.RecordFailure()
			cb.RecordFailure()

			snaps := registry.Snapshots()
			Expect(snaps["deepgram"].ConsecutiveFailures).To(Equal(2))
			Expect(snaps["deepgram"].State).To(Equal("CLOSED"))
		})
	})
})
