package provider_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/voxroute/voxroute/internal/provider"
)

var _ = Describe("Resolver", func() {
	var (
		configured map[string]provider.Settings
		resolver   *provider.Resolver
		descriptor *provider.Descriptor
	)

	BeforeEach(func() {
		configured = make(map[string]provider.Settings)
		resolver = provider.NewResolver(
			provider.Settings{"language": "en", "model": "global-default"},
			func(name string) provider.Settings { return configured[name] },
		)
		descriptor = &provider.Descriptor{
			Name:         "deepgram",
			RequiredKeys: []string{"api_key"},
			Defaults:     provider.Settings{"model": "nova-3"},
		}
	})

	Describe("Resolve", func() {
		It("should fail with the missing keys when required config is absent", func() {
			_, err := resolver.Resolve(descriptor, nil)
			Expect(err).To(HaveOccurred())

			var missing *provider.MissingRequiredConfigError
			Expect(err).To(BeAssignableToTypeOf(missing))
			Expect(err.(*provider.MissingRequiredConfigError).Missing).To(Equal([]string{"api_key"}))
		})

		It("should layer descriptor defaults over global defaults", func() {
			configured["deepgram"] = provider.Settings{"api_key": "dg-test"}

			merged, err := resolver.Resolve(descriptor, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(merged["model"]).To(Equal("nova-3"))
			Expect(merged["language"]).To(Equal("en"))
		})

		It("should layer configured values over descriptor defaults", func() {
			configured["deepgram"] = provider.Settings{"api_key": "dg-test", "model": "nova-2"}

			merged, err := resolver.Resolve(descriptor, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(merged["model"]).To(Equal("nova-2"))
		})

		It("should give caller overrides the last word", func() {
			configured["deepgram"] = provider.Settings{"api_key": "dg-test", "model": "nova-2"}

			merged, err := resolver.Resolve(descriptor, provider.Settings{"model": "whisper-large"})
			Expect(err).NotTo(HaveOccurred())
			Expect(merged["model"]).To(Equal("whisper-large"))
		})

		It("should treat an empty required value as missing", func() {
			configured["deepgram"] = provider.Settings{"api_key": ""}

			_, err := resolver.Resolve(descriptor, nil)
			Expect(err).To(HaveOccurred())
		})

		It("should accept a required key satisfied by overrides alone", func() {
			merged, err := resolver.Resolve(descriptor, provider.Settings{"api_key": "override-key"})
			Expect(err).NotTo(HaveOccurred())
			Expect(merged["api_key"]).To(Equal("override-key"))
		})
	})

	Describe("Configured", func() {
		It("should track runtime configuration changes", func() {
			Expect(resolver.Configured(descriptor)).To(BeFalse())

			configured["deepgram"] = provider.Settings{"api_key": "dg-test"}
			Expect(resolver.Configured(descriptor)).To(BeTrue())
		})
	})
})
