package wishes

import (
	"encoding/base64"
	"encoding/json"
)

// cursor is the resumption state carried by a page token: the sort key of the
// last wish on the previous page.
type cursor struct {
	WishID    string `json:"wishId"`
	CreatedAt int64  `json:"createdAt"`
}

func encodeCursor(w Wish) string {
	b, _ := json.Marshal(cursor{WishID: w.WishID, CreatedAt: w.CreatedAt})
	return base64.RawURLEncoding.EncodeToString(b)
}

// decodeCursor returns ok=false for empty or malformed tokens; callers then
// start from the first page.
func decodeCursor(token string) (cursor, bool) {
	if token == "" {
		return cursor{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return cursor{}, false
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.WishID == "" {
		return cursor{}, false
	}
	return c, true
}

// before reports whether a sorts ahead of b: createdAt descending, then wishId descending.
func before(a, b Wish) bool {
	if a.CreatedAt != b.CreatedAt {
		return a.CreatedAt > b.CreatedAt
	}
	return a.WishID > b.WishID
}

// after reports whether w sorts strictly behind the cursor position.
func (c cursor) after(w Wish) bool {
	return before(Wish{WishID: c.WishID, CreatedAt: c.CreatedAt}, w)
}

// pageOf cuts items (already ordered, up to limit+1 long) into a page. The
// extra item only signals that another page exists.
func pageOf(items []Wish, limit int) ListResult {
	res := ListResult{Wishes: items}
	if len(items) > limit {
		res.Wishes = items[:limit]
		next := encodeCursor(res.Wishes[limit-1])
		res.NextCursor = &next
	}
	if res.Wishes == nil {
		res.Wishes = []Wish{}
	}
	return res
}
