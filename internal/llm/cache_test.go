package llm_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kpauljoseph/highlightankify/internal/llm"
)

type countingProvider struct {
	mu    sync.Mutex
	calls int
	reply func(prompt string) (string, error)
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) Complete(_ context.Context, prompt string) (string, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()
	return p.reply(prompt)
}

func (p *countingProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

var _ = Describe("CachedProvider", func() {
	var (
		tempDir string
		inner   *countingProvider
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "llm-cache-test-*")
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
		inner = &countingProvider{reply: func(prompt string) (string, error) {
			return "reply to " + prompt, nil
		}}
	})

	AfterEach(func() {
		os.RemoveAll(tempDir)
	})

	It("should serve repeated prompts from disk", func() {
		path := filepath.Join(tempDir, "nested", "cache.db")
		cached, err := llm.NewCachedProvider(inner, "model-a", path)
		Expect(err).NotTo(HaveOccurred())

		first, err := cached.Complete(ctx, "one")
		Expect(err).NotTo(HaveOccurred())
		second, err := cached.Complete(ctx, "one")
		Expect(err).NotTo(HaveOccurred())

		Expect(second).To(Equal(first))
		Expect(inner.Calls()).To(Equal(1))
		Expect(cached.Close()).To(Succeed())

		reopened, err := llm.NewCachedProvider(inner, "model-a", path)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()

		third, err := reopened.Complete(ctx, "one")
		Expect(err).NotTo(HaveOccurred())
		Expect(third).To(Equal(first))
		Expect(inner.Calls()).To(Equal(1))
	})

	It("should keep models apart", func() {
		path := filepath.Join(tempDir, "cache.db")
		a, err := llm.NewCachedProvider(inner, "model-a", path)
		Expect(err).NotTo(HaveOccurred())
		_, err = a.Complete(ctx, "one")
		Expect(err).NotTo(HaveOccurred())
		Expect(a.Close()).To(Succeed())

		b, err := llm.NewCachedProvider(inner, "model-b", path)
		Expect(err).NotTo(HaveOccurred())
		defer b.Close()
		_, err = b.Complete(ctx, "one")
		Expect(err).NotTo(HaveOccurred())

		Expect(inner.Calls()).To(Equal(2))
	})

	It("should not cache failures", func() {
		inner.reply = func(string) (string, error) {
			return "", &llm.ProviderError{Provider: "counting", Kind: llm.KindServer, Err: errors.New("boom")}
		}
		cached, err := llm.NewCachedProvider(inner, "model-a", filepath.Join(tempDir, "cache.db"))
		Expect(err).NotTo(HaveOccurred())
		defer cached.Close()

		_, err = cached.Complete(ctx, "one")
		Expect(err).To(HaveOccurred())
		_, err = cached.Complete(ctx, "one")
		Expect(err).To(HaveOccurred())
		Expect(inner.Calls()).To(Equal(2))
	})

	It("should ask again and overwrite the entry when refreshing", func() {
		path := filepath.Join(tempDir, "cache.db")
		cached, err := llm.NewCachedProvider(inner, "model-a", path)
		Expect(err).NotTo(HaveOccurred())
		_, err = cached.Complete(ctx, "one")
		Expect(err).NotTo(HaveOccurred())
		Expect(cached.Close()).To(Succeed())

		inner.reply = func(prompt string) (string, error) { return "better reply to " + prompt, nil }
		refreshing, err := llm.NewCachedProvider(inner, "model-a", path, llm.WithCacheRefresh(true))
		Expect(err).NotTo(HaveOccurred())
		text, err := refreshing.Complete(ctx, "one")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("better reply to one"))
		Expect(refreshing.Close()).To(Succeed())

		reopened, err := llm.NewCachedProvider(inner, "model-a", path)
		Expect(err).NotTo(HaveOccurred())
		defer reopened.Close()
		text, err = reopened.Complete(ctx, "one")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("better reply to one"))
		Expect(inner.Calls()).To(Equal(2))
	})

	It("should not store completions the filter rejects", func() {
		inner.reply = func(string) (string, error) { return "Sorry, I cannot help with that.", nil }
		keepCards := llm.WithCacheFilter(func(text string) bool { return strings.Contains(text, "Q:") })
		cached, err := llm.NewCachedProvider(inner, "model-a", filepath.Join(tempDir, "cache.db"), keepCards)
		Expect(err).NotTo(HaveOccurred())
		defer cached.Close()

		for i := 0; i < 2; i++ {
			text, err := cached.Complete(ctx, "one")
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("Sorry, I cannot help with that."))
		}
		Expect(inner.Calls()).To(Equal(2))

		inner.reply = func(string) (string, error) { return "Q: What?\nA: That.", nil }
		for i := 0; i < 2; i++ {
			_, err := cached.Complete(ctx, "one")
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(inner.Calls()).To(Equal(3))
	})
})

var _ = Describe("RateLimited", func() {
	It("should return the provider unchanged without a limit", func() {
		inner := &countingProvider{reply: func(string) (string, error) { return "", nil }}
		Expect(llm.NewRateLimited(inner, 0)).To(BeIdenticalTo(inner))
	})

	It("should stop waiting when the context is canceled", func() {
		inner := &countingProvider{reply: func(string) (string, error) { return "ok", nil }}
		limited := llm.NewRateLimited(inner, 1)

		ctx := context.Background()
		_, err := limited.Complete(ctx, "first")
		Expect(err).NotTo(HaveOccurred())

		canceled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = limited.Complete(canceled, "second")

		var perr *llm.ProviderError
		Expect(errors.As(err, &perr)).To(BeTrue())
		Expect(perr.Kind).To(Equal(llm.KindCanceled))
		Expect(inner.Calls()).To(Equal(1))
	})
})
