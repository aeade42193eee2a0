package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/wishwall/internal/wishes"
)

func valid() CreateWishRequest {
	return CreateWishRequest{
		UserID:   "u1",
		Nickname: "张三",
		Content:  "新年快乐",
		Contact:  "wx-001",
		Gender:   "male",
	}
}

func TestCreateWishRequest_Valid(t *testing.T) {
	v := New()
	req := valid()
	req.Normalize()
	require.NoError(t, v.Struct(req))

	in := req.ToCreateInput()
	assert.Equal(t, "张三", in.Nickname)
	assert.Equal(t, wishes.GenderMale, in.Gender)
}

func TestCreateWishRequest_LengthsCountRunes(t *testing.T) {
	v := New()

	req := valid()
	req.Nickname = strings.Repeat("福", 20)
	req.Content = strings.Repeat("愿", 200)
	req.Contact = strings.Repeat("x", 100)
	assert.NoError(t, v.Struct(req))

	req.Content = strings.Repeat("a", 201)
	assert.Error(t, v.Struct(req))

	req = valid()
	req.Nickname = strings.Repeat("福", 21)
	assert.Error(t, v.Struct(req))

	req = valid()
	req.Contact = strings.Repeat("x", 101)
	assert.Error(t, v.Struct(req))
}

func TestCreateWishRequest_Gender(t *testing.T) {
	v := New()

	req := valid()
	req.Gender = "  "
	req.Normalize()
	assert.Equal(t, "secret", req.Gender)
	assert.NoError(t, v.Struct(req))

	req.Gender = "other"
	assert.Error(t, v.Struct(req))
}

func TestCreateWishRequest_RequiredAfterTrim(t *testing.T) {
	v := New()
	for _, mutate := range []func(*CreateWishRequest){
		func(r *CreateWishRequest) { r.UserID = "   " },
		func(r *CreateWishRequest) { r.Nickname = "\t" },
		func(r *CreateWishRequest) { r.Content = "" },
	} {
		req := valid()
		mutate(&req)
		req.Normalize()
		assert.Error(t, v.Struct(req))
	}
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "&lt;script&gt;alert(&#39;xss&#39;)&lt;/script&gt;", EscapeHTML("<script>alert('xss')</script>"))
	assert.Equal(t, "a &amp;&amp; &quot;b&quot;", EscapeHTML(`a && "b"`))

	req := valid()
	req.Content = "<b>hi</b>"
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", req.ToCreateInput().Content)
}

func TestBindAndValidate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	cases := []struct {
		name   string
		body   string
		status int
		field  string
	}{
		{"ok", `{"userId":" u1 ","nickname":"Sunny","content":"求脱单"}`, http.StatusOK, ""},
		{"malformed", `{"userId":`, http.StatusBadRequest, ""},
		{"too long", `{"userId":"u1","nickname":"Sunny","content":"` + strings.Repeat("a", 201) + `"}`, http.StatusBadRequest, "content"},
		{"bad gender", `{"userId":"u1","nickname":"Sunny","content":"c","gender":"x"}`, http.StatusBadRequest, "gender"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/api/wishes", strings.NewReader(tc.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var req CreateWishRequest
			err := BindAndValidate(c, &req, v)
			if tc.status == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, "u1", req.UserID)
				assert.Equal(t, "secret", req.Gender)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.status, w.Code)
			if tc.field != "" {
				assert.Contains(t, w.Body.String(), `"`+tc.field+`"`)
			}
		})
	}
}
