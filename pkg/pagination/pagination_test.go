package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func parseFor(query string) Params {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return Parse(c)
}

func TestParse(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		p := parseFor("")
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, DefaultLimit, p.Limit)
		assert.Equal(t, 0, p.Offset())
	})

	t.Run("Explicit values", func(t *testing.T) {
		p := parseFor("page=3&limit=50")
		assert.Equal(t, 3, p.Page)
		assert.Equal(t, 50, p.Limit)
		assert.Equal(t, 100, p.Offset())
	})

	t.Run("Limit clamped to max", func(t *testing.T) {
		p := parseFor("limit=1000")
		assert.Equal(t, MaxLimit, p.Limit)
	})

	t.Run("Garbage falls back to defaults", func(t *testing.T) {
		p := parseFor("page=-1&limit=abc")
		assert.Equal(t, DefaultPage, p.Page)
		assert.Equal(t, DefaultLimit, p.Limit)
	})
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		name       string
		page       int
		limit      int
		wantPage   int
		wantLimit  int
		wantOffset int
	}{
		{"Zero values fall back", 0, 0, DefaultPage, DefaultLimit, 0},
		{"Negative values fall back", -2, -5, DefaultPage, DefaultLimit, 0},
		{"In-range values pass through", 4, 25, 4, 25, 75},
		{"Oversized limit clamped", 2, 500, 2, MaxLimit, MaxLimit},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Normalize(tc.page, tc.limit)
			assert.Equal(t, tc.wantPage, p.Page)
			assert.Equal(t, tc.wantLimit, p.Limit)
			assert.Equal(t, tc.wantOffset, p.Offset())
		})
	}
}
