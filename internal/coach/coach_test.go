package coach

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubGenerator struct {
	reply      string
	err        error
	prompt     string
	structured bool
}

func (s *stubGenerator) Generate(_ context.Context, prompt string, structured bool) (string, error) {
	s.prompt = prompt
	s.structured = structured
	return s.reply, s.err
}

func TestSuggestChallengesIncludesLogs(t *testing.T) {
	gen := &stubGenerator{reply: `[{"action":"Take a 15-minute walk","points":10,"motto":"Every step counts!"}]`}
	svc := NewService(gen)

	svc.AddLog("acme", "user-1", "Walked 5km this morning")
	svc.AddLog("acme", "user-1", "Skipped breakfast")

	got, err := svc.SuggestChallenges(context.Background(), "acme", "user-1")
	if err != nil {
		t.Fatalf("SuggestChallenges: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}
	if got[0].Action != "Take a 15-minute walk" || got[0].Points != 10 {
		t.Fatalf("unexpected suggestion: %+v", got[0])
	}
	if !gen.structured {
		t.Fatal("expected structured generation for challenges")
	}
	if !strings.Contains(gen.prompt, "Walked 5km this morning") {
		t.Fatalf("prompt missing stored log: %q", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "Skipped breakfast") {
		t.Fatalf("prompt missing stored log: %q", gen.prompt)
	}
}

func TestSuggestChallengesNoLogs(t *testing.T) {
	gen := &stubGenerator{reply: `[]`}
	svc := NewService(gen)

	got, err := svc.SuggestChallenges(context.Background(), "acme", "user-2")
	if err != nil {
		t.Fatalf("SuggestChallenges: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no suggestions, got %d", len(got))
	}
	if !strings.Contains(gen.prompt, "No previous logs") {
		t.Fatalf("prompt should note missing logs: %q", gen.prompt)
	}
}

func TestSuggestChallengesMalformedReply(t *testing.T) {
	gen := &stubGenerator{reply: `not json`}
	svc := NewService(gen)

	if _, err := svc.SuggestChallenges(context.Background(), "acme", "user-1"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestAddLogIsolatedPerUser(t *testing.T) {
	svc := NewService(&stubGenerator{})

	if n := svc.AddLog("acme", "a", "first"); n != 1 {
		t.Fatalf("expected 1 log, got %d", n)
	}
	if n := svc.AddLog("acme", "b", "other"); n != 1 {
		t.Fatalf("expected separate log store per user, got %d", n)
	}
	if n := svc.AddLog("acme", "a", "second"); n != 2 {
		t.Fatalf("expected 2 logs, got %d", n)
	}
}

func TestChat(t *testing.T) {
	gen := &stubGenerator{reply: "  Great job! Try the step challenge today.  "}
	svc := NewService(gen)

	reply, err := svc.Chat(context.Background(), "How do I stay motivated?")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply != "Great job! Try the step challenge today." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if gen.structured {
		t.Fatal("chat should not request structured output")
	}
	if !strings.Contains(gen.prompt, "YouMatter Wellness Coach") {
		t.Fatalf("prompt missing persona: %q", gen.prompt)
	}
	if !strings.Contains(gen.prompt, "How do I stay motivated?") {
		t.Fatalf("prompt missing user message: %q", gen.prompt)
	}
}

func TestChatEmptyMessage(t *testing.T) {
	svc := NewService(&stubGenerator{})
	if _, err := svc.Chat(context.Background(), "   "); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestChatGeneratorError(t *testing.T) {
	svc := NewService(&stubGenerator{err: errors.New("upstream down")})
	if _, err := svc.Chat(context.Background(), "hi"); err == nil {
		t.Fatal("expected error")
	}
}
