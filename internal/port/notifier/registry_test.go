package notifier

import (
	"context"
	"testing"
)

type namedNotifier struct{ name, url string }

func (n namedNotifier) Name() string                             { return n.name }
func (n namedNotifier) Send(context.Context, Notification) error { return nil }

func TestBuildSkipsProvidersWithoutURL(t *testing.T) {
	for _, name := range []string{"test-b", "test-a", "test-c"} {
		Register(name, func(url string) Notifier { return namedNotifier{name: name, url: url} })
	}

	got := Build(map[string]string{"test-c": "https://c", "test-a": "https://a", "test-b": "", "nope": "https://x"})
	if len(got) != 2 {
		t.Fatalf("Build returned %d notifiers, want 2", len(got))
	}
	if got[0].Name() != "test-a" || got[1].Name() != "test-c" {
		t.Fatalf("order = %s, %s", got[0].Name(), got[1].Name())
	}
	if got[0].(namedNotifier).url != "https://a" {
		t.Fatalf("url not passed to factory: %+v", got[0])
	}
}

func TestRegisterTwicePanics(t *testing.T) {
	Register("test-dup", func(string) Notifier { return namedNotifier{} })
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	Register("test-dup", func(string) Notifier { return namedNotifier{} })
}
