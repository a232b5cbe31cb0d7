package db

import "testing"

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"url untouched", "postgres://u:p@localhost:5432/erpbtp?sslmode=require", "postgres://u:p@localhost:5432/erpbtp?sslmode=require"},
		{"url scheme case", "PostgreSQL://u:p@db/erpbtp", "PostgreSQL://u:p@db/erpbtp"},
		{"kv gets sslmode", "host=localhost user=erp dbname=erpbtp", "host=localhost user=erp dbname=erpbtp sslmode=disable"},
		{"kv keeps sslmode", "host=localhost sslmode=require", "host=localhost sslmode=require"},
		{"quotes and spaces", `  "host=db  user=erp" `, "host=db user=erp sslmode=disable"},
		{"opaque string untouched", "not-a-dsn", "not-a-dsn"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeDSN(tt.in); got != tt.want {
				t.Errorf("NormalizeDSN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
