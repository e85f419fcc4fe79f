package models

import "encoding/json"

// Likes is the normalized form of a `likes` payload, which the backend sends
// either as a plain count or as the list of users who liked the entity.
type Likes struct {
	count int
	users []string
	known bool
}

// LikesCount builds a Likes value from a bare count. Membership is unknown.
func LikesCount(n int) Likes {
	if n < 0 {
		n = 0
	}
	return Likes{count: n}
}

// LikesUsers builds a Likes value from a list of user IDs.
func LikesUsers(userIDs []string) Likes {
	users := make([]string, 0, len(userIDs))
	seen := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		users = append(users, id)
	}
	return Likes{count: len(users), users: users, known: true}
}

// Count returns the number of likes.
func (l Likes) Count() int {
	return l.count
}

// KnowsUsers reports whether the payload carried the liking users.
func (l Likes) KnowsUsers() bool {
	return l.known
}

// Users returns a copy of the liking user IDs, nil when unknown.
func (l Likes) Users() []string {
	if !l.known {
		return nil
	}
	out := make([]string, len(l.users))
	copy(out, l.users)
	return out
}

// Has reports whether userID is among the likers. Always false when the
// payload only carried a count.
func (l Likes) Has(userID string) bool {
	if !l.known || userID == "" {
		return false
	}
	for _, id := range l.users {
		if id == userID {
			return true
		}
	}
	return false
}

// With returns a copy with userID added. A count-only value just grows by one.
func (l Likes) With(userID string) Likes {
	if !l.known {
		return LikesCount(l.count + 1)
	}
	if l.Has(userID) {
		return l
	}
	return LikesUsers(append(l.Users(), userID))
}

// Without returns a copy with userID removed. A count-only value shrinks by one.
func (l Likes) Without(userID string) Likes {
	if !l.known {
		return LikesCount(l.count - 1)
	}
	users := make([]string, 0, len(l.users))
	for _, id := range l.users {
		if id != userID {
			users = append(users, id)
		}
	}
	return LikesUsers(users)
}

type likesJSON struct {
	Count int      `json:"count"`
	Users []string `json:"users,omitempty"`
}

func (l Likes) MarshalJSON() ([]byte, error) {
	return json.Marshal(likesJSON{Count: l.count, Users: l.users})
}

// UnmarshalJSON accepts every shape the backend uses for likes: a number, an
// array of user IDs, an array of user objects, or the {count, users} form
// MarshalJSON produces. Anything else decodes to zero likes.
func (l *Likes) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = LikesCount(0)
		return nil
	}

	switch v := raw.(type) {
	case float64:
		*l = LikesCount(int(v))
	case []interface{}:
		*l = LikesUsers(userIDs(v))
	case map[string]interface{}:
		if users, ok := v["users"].([]interface{}); ok {
			*l = LikesUsers(userIDs(users))
			return nil
		}
		n, _ := v["count"].(float64)
		*l = LikesCount(int(n))
	default:
		*l = LikesCount(0)
	}
	return nil
}

// userIDs extracts IDs from a decoded JSON array of strings or user objects.
func userIDs(values []interface{}) []string {
	ids := make([]string, 0, len(values))
	for _, v := range values {
		switch u := v.(type) {
		case string:
			ids = append(ids, u)
		case map[string]interface{}:
			for _, key := range []string{"_id", "id", "userId"} {
				if id, ok := u[key].(string); ok && id != "" {
					ids = append(ids, id)
					break
				}
			}
		}
	}
	return ids
}
