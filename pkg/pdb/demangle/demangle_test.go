package demangle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFull(t *testing.T) {
	tests := []struct {
		in   string
		want Result
		decl string
	}{
		{
			in:   "?f@@YAXXZ",
			want: Result{Kind: KindFunction, Name: "f", Prototype: "void __cdecl(void)"},
			decl: "void __cdecl f(void)",
		},
		{
			in:   "?g@ns@@YAHHPEAD@Z",
			want: Result{Kind: KindFunction, Name: "ns::g", Prototype: "int __cdecl(int, char*)"},
		},
		{
			in:   "??0Widget@@QEAA@XZ",
			want: Result{Kind: KindFunction, Name: "Widget::Widget", Access: "public:", Prototype: "__cdecl(void)"},
			decl: "public: __cdecl Widget::Widget(void)",
		},
		{
			in:   "??1Widget@ui@@UEAA@XZ",
			want: Result{Kind: KindFunction, Name: "ui::Widget::~Widget", Access: "public: virtual", Prototype: "__cdecl(void)"},
		},
		{
			in:   "?resize@Widget@@QEAAXV1@@Z",
			want: Result{Kind: KindFunction, Name: "Widget::resize", Access: "public:", Prototype: "void __cdecl(class Widget)"},
		},
		{
			in:   "?count@Widget@@2HA",
			want: Result{Kind: KindData, Name: "Widget::count", Access: "public: static", Prototype: "int"},
			decl: "public: static int Widget::count",
		},
		{
			in:   "?g_table@@3PEAUEntry@@EA",
			want: Result{Kind: KindData, Name: "g_table", Prototype: "struct Entry*"},
		},
		{
			in:   "??_7Widget@@6B@",
			want: Result{Kind: KindSpecial, Name: "Widget::`vftable'"},
		},
		{
			in:   "??$max@H@std@@YAHHH@Z",
			want: Result{Kind: KindFunction, Name: "std::max<int>", Prototype: "int __cdecl(int, int)"},
		},
		{
			in:   "??4Widget@@QEAAAEAV0@AEBV0@@Z",
			want: Result{Kind: KindFunction, Name: "Widget::operator=", Access: "public:",
				Prototype: "class Widget& __cdecl(const class Widget&)"},
		},
		{
			in:   "?cb@@YAXP6AXH@Z@Z",
			want: Result{Kind: KindFunction, Name: "cb", Prototype: "void __cdecl(void (__cdecl*)(int))"},
		},
		{
			in:   "?log@@YAXPEBDZZ",
			want: Result{Kind: KindFunction, Name: "log", Prototype: "void __cdecl(const char*, ...)"},
		},
		{
			in:   "_WinMain@16",
			want: Result{Kind: KindC, Name: "WinMain"},
		},
		{
			in:   "@fast@8",
			want: Result{Kind: KindC, Name: "fast"},
		},
		{
			in:   "_main",
			want: Result{Kind: KindPlain, Name: "_main"},
		},
		{
			in:   "memcpy",
			want: Result{Kind: KindPlain, Name: "memcpy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Full(tt.in)
			assert.Equal(t, tt.want, got)
			if tt.decl != "" {
				assert.Equal(t, tt.decl, got.String())
			}
		})
	}
}

func TestFullImport(t *testing.T) {
	r := Full("__imp_?f@@YAXXZ")
	assert.True(t, r.Import)
	assert.Equal(t, "f", r.Name)
	assert.Equal(t, "void __cdecl f(void) [import]", r.String())
}

func TestMalformedNamesPassThrough(t *testing.T) {
	for _, in := range []string{"?", "?f@@", "?f@@Y", "?f@@YAX", "?x@@3", "??_Qbad@@", "?f@9@YAXXZ"} {
		assert.NotPanics(t, func() {
			r := Full(in)
			assert.NotEmpty(t, r.Name, in)
		}, in)
	}
	assert.Equal(t, "?f@9@YAXXZ", Demangle("?f@9@YAXXZ"))
	assert.Equal(t, "Widget::Widget", Demangle("??0Widget@@QEAA@XZ"))
	assert.Equal(t, "", Demangle(""))
}

func TestArrayDimensionCountBounded(t *testing.T) {
	tests := []string{
		"?x@@3YBAAAAAA@H",         // 0x1000000 dimensions
		"?x@@3YHPPPPPPPPPPPPPP@H", // close to MaxInt64
		"?x@@3Y?0HA",              // negative
		"?x@@3Y@HA",               // zero
	}
	for _, in := range tests {
		in := in
		t.Run(in, func(t *testing.T) {
			done := make(chan string, 1)
			go func() { done <- Demangle(in) }()
			select {
			case got := <-done:
				assert.Equal(t, in, got)
			case <-time.After(time.Second):
				t.Fatalf("Demangle(%q) did not return", in)
			}
		})
	}

	assert.Equal(t, "int[2][3]", Full("?x@@3Y112HA").Prototype)
}
