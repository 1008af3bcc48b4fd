package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		vars map[string]*string
		want string
	}{
		{
			name: "basic substitution",
			tmpl: "Olá {{nome}}, obrigado!",
			vars: map[string]*string{"nome": strPtr("Maria")},
			want: "Olá Maria, obrigado!",
		},
		{
			name: "whitespace inside markers",
			tmpl: "Olá {{ nome }}!",
			vars: map[string]*string{"nome": strPtr("Maria")},
			want: "Olá Maria!",
		},
		{
			name: "case insensitive keys",
			tmpl: "Olá {{Nome}}!",
			vars: map[string]*string{"NOME": strPtr("Maria")},
			want: "Olá Maria!",
		},
		{
			name: "nil value renders empty",
			tmpl: "Olá {{nome}}!",
			vars: map[string]*string{"nome": nil},
			want: "Olá !",
		},
		{
			name: "unknown marker left untouched",
			tmpl: "Olá {{nome}}, veja {{oferta}}",
			vars: map[string]*string{"nome": strPtr("Maria")},
			want: "Olá Maria, veja {{oferta}}",
		},
		{
			name: "repeated marker",
			tmpl: "{{nome}} e {{nome}}",
			vars: map[string]*string{"nome": strPtr("Maria")},
			want: "Maria e Maria",
		},
		{
			name: "empty template",
			tmpl: "",
			vars: map[string]*string{"nome": strPtr("Maria")},
			want: "",
		},
		{
			name: "no markers",
			tmpl: "plain text",
			vars: nil,
			want: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, tt.vars))
		})
	}
}

func TestVarsExtraOverridesBase(t *testing.T) {
	base := map[string]*string{"Nome": strPtr("base"), "email": strPtr("a@b.c")}
	out := Vars(base, map[string]string{"NOME": "extra", "produto": "Course"})

	assert.Equal(t, "extra", *out["nome"])
	assert.Equal(t, "a@b.c", *out["email"])
	assert.Equal(t, "Course", *out["produto"])
}
