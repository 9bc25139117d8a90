package provider

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewMock("alpha", "hello"))
	reg.Register(NewMock("beta", "world"))

	p, err := reg.Get("alpha")
	if err != nil {
		t.Fatalf("Get(alpha): %v", err)
	}
	if p.Name() != "alpha" {
		t.Errorf("expected name=alpha, got %s", p.Name())
	}

	if _, err := reg.Get("missing"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}

	if got := len(reg.List()); got != 2 {
		t.Errorf("expected 2 providers, got %d", got)
	}
}

func TestMockScript(t *testing.T) {
	p := NewMockScript("m", "one", "two")
	ctx := context.Background()

	for i, want := range []string{"one", "two", "two"} {
		got, err := p.Chat(ctx, nil)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if got != want {
			t.Errorf("call %d: expected %q, got %q", i, want, got)
		}
	}
	if p.Calls() != 3 {
		t.Errorf("expected 3 calls, got %d", p.Calls())
	}
}

func TestMockChatError(t *testing.T) {
	wantErr := errors.New("backend down")
	p := NewMock("m", "unused").WithChatError(wantErr)

	if _, err := p.Chat(context.Background(), nil); !errors.Is(err, wantErr) {
		t.Errorf("expected scripted error, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		blob    string
		wantErr bool
		want    string
	}{
		{
			name: "bare object",
			blob: `{"title":"Border Standoff"}`,
			want: "Border Standoff",
		},
		{
			name: "object wrapped in prose",
			blob: "Sure, here is the event:\n```json\n{\"title\":\"Trade Embargo\"}\n```\nLet me know.",
			want: "Trade Embargo",
		},
		{
			name:    "no object at all",
			blob:    "I cannot answer that.",
			wantErr: true,
		},
		{
			name:    "malformed object",
			blob:    `{"title": "unterminated`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out struct {
				Title string `json:"title"`
			}
			err := ExtractJSON(tt.blob, &out)
			if tt.wantErr {
				if !errors.Is(err, ErrGeneration) {
					t.Fatalf("expected ErrGeneration, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.Title != tt.want {
				t.Errorf("expected title=%q, got %q", tt.want, out.Title)
			}
		})
	}
}

func TestToOpenAIMessagesMergesSystem(t *testing.T) {
	msgs := toOpenAIMessages([]Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleSystem, Content: "framing"},
		{Role: RoleAssistant, Content: "hello"},
	})

	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != "persona\n\nframing" {
		t.Errorf("system merge wrong: %+v", msgs[0])
	}
	if msgs[1].Role != RoleUser || msgs[2].Role != RoleAssistant {
		t.Errorf("non-system order not preserved: %+v", msgs[1:])
	}
}
