package wishes

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursor_RoundTrip(t *testing.T) {
	w := Wish{WishID: "5f0c-ü/+", CreatedAt: 1801670400000}
	token := encodeCursor(w)

	assert.Equal(t, url.QueryEscape(token), token, "token must be URL safe")

	c, ok := decodeCursor(token)
	assert.True(t, ok)
	assert.Equal(t, w.WishID, c.WishID)
	assert.Equal(t, w.CreatedAt, c.CreatedAt)
}

func TestCursor_RejectsGarbage(t *testing.T) {
	for _, token := range []string{"", "***", "e30", "bnVsbA"} {
		_, ok := decodeCursor(token)
		assert.False(t, ok, token)
	}
}

func TestCursor_Ordering(t *testing.T) {
	c := cursor{WishID: "b", CreatedAt: 10}
	assert.True(t, c.after(Wish{WishID: "z", CreatedAt: 9}))
	assert.True(t, c.after(Wish{WishID: "a", CreatedAt: 10}))
	assert.False(t, c.after(Wish{WishID: "b", CreatedAt: 10}))
	assert.False(t, c.after(Wish{WishID: "c", CreatedAt: 10}))
	assert.False(t, c.after(Wish{WishID: "a", CreatedAt: 11}))
}

func TestPageOf(t *testing.T) {
	items := []Wish{{WishID: "c", CreatedAt: 3}, {WishID: "b", CreatedAt: 2}, {WishID: "a", CreatedAt: 1}}

	res := pageOf(items, 2)
	assert.Len(t, res.Wishes, 2)
	if assert.NotNil(t, res.NextCursor) {
		c, ok := decodeCursor(*res.NextCursor)
		assert.True(t, ok)
		assert.Equal(t, "b", c.WishID)
	}

	res = pageOf(items, 3)
	assert.Len(t, res.Wishes, 3)
	assert.Nil(t, res.NextCursor)

	res = pageOf(nil, 3)
	assert.NotNil(t, res.Wishes)
	assert.Nil(t, res.NextCursor)
}
