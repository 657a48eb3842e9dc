package resilience_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fbruckner/takt/internal/resilience"
	embedmock "github.com/fbruckner/takt/pkg/provider/embeddings/mock"
	llmmock "github.com/fbruckner/takt/pkg/provider/llm/mock"
)

func TestGuardedGenerator_PassesThroughWhileClosed(t *testing.T) {
	inner := &llmmock.Provider{Responses: []string{"hello"}}
	g := resilience.GuardGenerator(inner, resilience.NewBreaker("test"))

	out, err := g.Generate(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if out != "hello" {
		t.Fatalf("out = %q", out)
	}
	if g.ModelID() != "mock" {
		t.Fatalf("model id = %q", g.ModelID())
	}
}

func TestGuardedGenerator_FailsFastWhenOpen(t *testing.T) {
	inner := &llmmock.Provider{Err: errors.New("down")}
	g := resilience.GuardGenerator(inner, resilience.NewBreaker("test", resilience.WithMaxFailures(2)))
	ctx := context.Background()

	g.Generate(ctx, "s", "u")
	g.Generate(ctx, "s", "u")

	_, err := g.Generate(ctx, "s", "u")
	if !errors.Is(err, resilience.ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
	if len(inner.Calls) != 2 {
		t.Fatalf("inner calls = %d, want 2", len(inner.Calls))
	}
}

func TestSharedBreaker_EmbedderTripsGenerator(t *testing.T) {
	b := resilience.NewBreaker("test", resilience.WithMaxFailures(1))
	emb := resilience.GuardEmbedder(&embedmock.Provider{Err: errors.New("down")}, b)
	gen := resilience.GuardGenerator(&llmmock.Provider{Responses: []string{"ok"}}, b)
	ctx := context.Background()

	if _, err := emb.Embed(ctx, "text"); err == nil {
		t.Fatal("expected embed error")
	}
	if _, err := gen.Generate(ctx, "s", "u"); !errors.Is(err, resilience.ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen", err)
	}
}

func TestGuardedEmbedder_ForwardsMetadata(t *testing.T) {
	inner := &embedmock.Provider{Default: []float32{1, 2, 3}}
	g := resilience.GuardEmbedder(inner, resilience.NewBreaker("test"))

	vec, err := g.Embed(context.Background(), "text")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if len(vec) != 3 || g.Dimensions() != 3 || g.ModelID() != "mock" {
		t.Fatalf("vec = %v, dims = %d, model = %q", vec, g.Dimensions(), g.ModelID())
	}
}
