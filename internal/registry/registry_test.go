package registry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sandevgo/aizen/internal/core"
)

func noopHandler(ctx context.Context, args json.RawMessage) (string, error) {
	return "ok", nil
}

type fakeToolset struct {
	defs []core.ToolDefinition
}

func (f *fakeToolset) Definitions() []core.ToolDefinition {
	return f.defs
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name    string
		defs    []core.ToolDefinition
		wantErr error
	}{
		{
			name: "single tool",
			defs: []core.ToolDefinition{
				{Name: "news.get_latest", Handler: noopHandler},
			},
		},
		{
			name: "multiple tools",
			defs: []core.ToolDefinition{
				{Name: "news.get_latest", Handler: noopHandler},
				{Name: "social.post_update", Handler: noopHandler},
			},
		},
		{
			name: "duplicate name rejected",
			defs: []core.ToolDefinition{
				{Name: "news.get_latest", Handler: noopHandler},
				{Name: "news.get_latest", Handler: noopHandler},
			},
			wantErr: core.ErrDuplicateTool,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()
			var err error
			for _, def := range tt.defs {
				err = r.Register(def)
				if err != nil {
					break
				}
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRegistry_Register_Invalid(t *testing.T) {
	r := New()

	if err := r.Register(core.ToolDefinition{Name: "", Handler: noopHandler}); err == nil {
		t.Error("empty name should be rejected")
	}
	if err := r.Register(core.ToolDefinition{Name: "x"}); err == nil {
		t.Error("nil handler should be rejected")
	}
}

func TestRegistry_RegisterToolset(t *testing.T) {
	r := New()
	ts := &fakeToolset{
		defs: []core.ToolDefinition{
			{Name: "get_latest_news", Description: "latest articles", Schema: `{}`, Handler: noopHandler},
			{Name: "get_article", Schema: `{}`, Handler: noopHandler},
		},
	}

	if err := r.RegisterToolset("blockworks", ts); err != nil {
		t.Fatalf("RegisterToolset failed: %v", err)
	}

	if _, err := r.Resolve("blockworks.get_latest_news"); err != nil {
		t.Errorf("qualified name not resolvable: %v", err)
	}
	if _, err := r.Resolve("blockworks.get_article"); err != nil {
		t.Errorf("qualified name not resolvable: %v", err)
	}
	if _, err := r.Resolve("get_latest_news"); !errors.Is(err, core.ErrToolNotFound) {
		t.Error("unqualified name should not resolve")
	}
}

func TestRegistry_Resolve_NotFound(t *testing.T) {
	r := New()

	_, err := r.Resolve("missing.tool")
	if !errors.Is(err, core.ErrToolNotFound) {
		t.Fatalf("err = %v, want ErrToolNotFound", err)
	}
}

func TestRegistry_DescriptorsFor(t *testing.T) {
	r := New()
	for _, name := range []string{"a.one", "b.two", "c.three"} {
		if err := r.Register(core.ToolDefinition{
			Name:    name,
			Schema:  `{"type":"object"}`,
			Handler: noopHandler,
		}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	tests := []struct {
		name    string
		names   []string
		wantErr bool
		want    []string
	}{
		{
			name:  "subset in given order",
			names: []string{"c.three", "a.one"},
			want:  []string{"c.three", "a.one"},
		},
		{
			name:  "empty selection",
			names: nil,
			want:  []string{},
		},
		{
			name:    "unknown name fails",
			names:   []string{"a.one", "nope"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			descs, err := r.DescriptorsFor(tt.names)

			if tt.wantErr {
				if !errors.Is(err, core.ErrToolNotFound) {
					t.Fatalf("err = %v, want ErrToolNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if len(descs) != len(tt.want) {
				t.Fatalf("count = %d, want %d", len(descs), len(tt.want))
			}
			for i, w := range tt.want {
				if descs[i].Function.Name != w {
					t.Errorf("descriptor[%d] = %s, want %s", i, descs[i].Function.Name, w)
				}
				if descs[i].Type != "function" {
					t.Errorf("descriptor[%d] type = %s, want function", i, descs[i].Type)
				}
			}
		})
	}
}

func TestRegistry_Names_Order(t *testing.T) {
	r := New()
	names := []string{"z.last", "a.first", "m.middle"}
	for _, n := range names {
		if err := r.Register(core.ToolDefinition{Name: n, Handler: noopHandler}); err != nil {
			t.Fatalf("Register failed: %v", err)
		}
	}

	got := r.Names()
	if len(got) != len(names) {
		t.Fatalf("count = %d, want %d", len(got), len(names))
	}
	for i, n := range names {
		if got[i] != n {
			t.Errorf("names[%d] = %s, want %s (registration order)", i, got[i], n)
		}
	}
}
