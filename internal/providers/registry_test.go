package providers

import (
	"sync"
	"testing"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get LLM", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient("ok")

		r.RegisterLLM("test-llm", mock)

		client, err := r.GetLLM("test-llm")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if client != mock {
			t.Error("got different client than registered")
		}
	})

	t.Run("get nonexistent LLM", func(t *testing.T) {
		r := NewRegistry()
		if _, err := r.GetLLM("nonexistent"); err == nil {
			t.Error("expected error for nonexistent LLM")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("b", NewMockClient(""))
		r.RegisterLLM("a", NewMockClient(""))

		names := r.ListLLM()
		if len(names) != 2 || names[0] != "a" || names[1] != "b" {
			t.Errorf("ListLLM() = %v", names)
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("shared", NewMockClient(""))
			}()
			go func() {
				defer wg.Done()
				r.HasLLM("shared")
			}()
		}
		wg.Wait()
		if !r.HasLLM("shared") {
			t.Error("expected shared client")
		}
	})
}

func TestRegistry_Reload(t *testing.T) {
	cfg := map[string]LLMProviderConfig{
		"perplexity": {Type: "perplexity", Model: "sonar", Enabled: true},
		"deepseek":   {Type: "deepseek", APIKey: "sk-test", Enabled: true},
		"disabled":   {Type: "perplexity", Enabled: false},
		"bogus":      {Type: "nope", Enabled: true},
	}
	r := NewRegistryFromConfig(cfg, nil)

	if !r.HasLLM("perplexity") || !r.HasLLM("deepseek") {
		t.Fatalf("expected perplexity and deepseek, got %v", r.ListLLM())
	}
	if r.HasLLM("disabled") || r.HasLLM("bogus") {
		t.Errorf("unexpected clients: %v", r.ListLLM())
	}

	before, _ := r.GetLLM("perplexity")
	r.Reload(map[string]LLMProviderConfig{
		"perplexity": {Type: "perplexity", Model: "sonar", Enabled: true},
	})
	after, _ := r.GetLLM("perplexity")
	if before != after {
		t.Error("unchanged provider should not be rebuilt")
	}
	if r.HasLLM("deepseek") {
		t.Error("removed provider should be unregistered")
	}

	r.Reload(map[string]LLMProviderConfig{
		"perplexity": {Type: "perplexity", Model: "sonar-pro", Enabled: true},
	})
	changed, _ := r.GetLLM("perplexity")
	if changed == after {
		t.Error("changed model should rebuild the client")
	}
}
