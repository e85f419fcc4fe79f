package gateway

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/johnrirwin/socialfeed/internal/models"
)

// The backend is loose about shapes: ids arrive as _id or id, authors as an
// object or a bare id, counters as numbers, numeric strings or arrays. The
// types below absorb that so nothing past this package sees it.

// lenient decodes data into v, keeping every field that did decode.
// encoding/json keeps going after a type mismatch, so only syntax errors
// leave v untouched.
func lenient(data []byte, v interface{}) bool {
	if len(data) == 0 {
		return false
	}
	err := json.Unmarshal(data, v)
	if err == nil {
		return true
	}
	_, typeErr := err.(*json.UnmarshalTypeError)
	return typeErr
}

// unwrapList returns the JSON array in data, or the array under the first
// matching key when data is an object.
func unwrapList(data []byte, keys ...string) []json.RawMessage {
	var list []json.RawMessage
	if json.Unmarshal(data, &list) == nil {
		return list
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(data, &obj) != nil {
		return nil
	}
	for _, key := range keys {
		if inner, ok := obj[key]; ok && json.Unmarshal(inner, &list) == nil {
			return list
		}
	}
	return nil
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if json.Unmarshal(data, &raw) != nil {
		*f = 0
		return nil
	}
	switch v := raw.(type) {
	case float64:
		*f = flexInt(v)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(v))
		*f = flexInt(n)
	case []interface{}:
		*f = flexInt(len(v))
	default:
		*f = 0
	}
	if *f < 0 {
		*f = 0
	}
	return nil
}

type flexTime time.Time

func (f *flexTime) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if json.Unmarshal(data, &raw) != nil {
		return nil
	}
	switch v := raw.(type) {
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				*f = flexTime(t)
				return nil
			}
		}
	case float64:
		// epoch milliseconds
		*f = flexTime(time.UnixMilli(int64(v)).UTC())
	}
	return nil
}

type wireRef struct {
	ref models.UserRef
}

func (w *wireRef) UnmarshalJSON(data []byte) error {
	var id string
	if json.Unmarshal(data, &id) == nil {
		w.ref = models.UserRef{ID: id}
		return nil
	}

	var obj struct {
		ID             string `json:"_id"`
		AltID          string `json:"id"`
		Username       string `json:"username"`
		Name           string `json:"name"`
		FullName       string `json:"fullName"`
		DisplayName    string `json:"displayName"`
		ProfilePicture string `json:"profilePicture"`
		Avatar         string `json:"avatar"`
		Verified       bool   `json:"verified"`
		IsVerified     bool   `json:"isVerified"`
	}
	if !lenient(data, &obj) {
		return nil
	}

	w.ref = models.UserRef{
		ID:          firstNonEmpty(obj.ID, obj.AltID),
		Username:    obj.Username,
		DisplayName: firstNonEmpty(obj.DisplayName, obj.FullName, obj.Name),
		AvatarURL:   firstNonEmpty(obj.ProfilePicture, obj.Avatar),
		Verified:    obj.Verified || obj.IsVerified,
	}
	return nil
}

type wireReply struct {
	ID        string       `json:"_id"`
	AltID     string       `json:"id"`
	CommentID string       `json:"commentId"`
	ReplyTo   wireRef      `json:"replyTo"`
	Author    wireRef      `json:"author"`
	User      wireRef      `json:"user"`
	Text      string       `json:"text"`
	Content   string       `json:"content"`
	Likes     models.Likes `json:"likes"`
	CreatedAt flexTime     `json:"createdAt"`
}

func (w wireReply) model(commentID string) models.Reply {
	replyTo := w.ReplyTo.ref.Handle()
	if replyTo == "" {
		replyTo = w.ReplyTo.ref.ID
	}
	return models.Reply{
		ID:        firstNonEmpty(w.ID, w.AltID),
		CommentID: firstNonEmpty(w.CommentID, commentID),
		ReplyTo:   replyTo,
		Author:    pickRef(w.Author, w.User),
		Text:      plainText(firstNonEmpty(w.Text, w.Content)),
		Likes:     w.Likes,
		CreatedAt: time.Time(w.CreatedAt),
	}
}

type wireComment struct {
	ID        string            `json:"_id"`
	AltID     string            `json:"id"`
	Post      wireRef           `json:"post"`
	PostID    string            `json:"postId"`
	Author    wireRef           `json:"author"`
	User      wireRef           `json:"user"`
	Text      string            `json:"text"`
	Content   string            `json:"content"`
	Likes     models.Likes      `json:"likes"`
	Replies   []json.RawMessage `json:"replies"`
	CreatedAt flexTime          `json:"createdAt"`
}

func (w wireComment) model(postID string) models.Comment {
	id := firstNonEmpty(w.ID, w.AltID)
	c := models.Comment{
		ID:        id,
		PostID:    firstNonEmpty(w.PostID, w.Post.ref.ID, postID),
		Author:    pickRef(w.Author, w.User),
		Text:      plainText(firstNonEmpty(w.Text, w.Content)),
		Likes:     w.Likes,
		Replies:   make([]models.Reply, 0, len(w.Replies)),
		CreatedAt: time.Time(w.CreatedAt),
	}
	for _, raw := range w.Replies {
		var r wireReply
		if !lenient(raw, &r) {
			continue
		}
		reply := r.model(id)
		if reply.ID == "" {
			continue
		}
		c.Replies = append(c.Replies, reply)
	}
	return c
}

func decodeComments(data []byte, postID string) []models.Comment {
	list := unwrapList(data, "comments", "data")
	comments := make([]models.Comment, 0, len(list))
	for _, raw := range list {
		var w wireComment
		if !lenient(raw, &w) {
			continue
		}
		c := w.model(postID)
		if c.ID == "" {
			continue
		}
		comments = append(comments, c)
	}
	return comments
}

// wireEntry is anything the posts endpoint returns: normally a post,
// sometimes an ad mixed in by the backend.
type wireEntry struct {
	ID          string          `json:"_id"`
	AltID       string          `json:"id"`
	Type        string          `json:"type"`
	IsAd        bool            `json:"isAd"`
	Author      wireRef         `json:"author"`
	User        wireRef         `json:"user"`
	Content     json.RawMessage `json:"content"`
	Text        string          `json:"text"`
	Image       string          `json:"image"`
	Video       string          `json:"video"`
	CreatedAt   flexTime        `json:"createdAt"`
	Likes       models.Likes    `json:"likes"`
	Comments    json.RawMessage `json:"comments"`
	Count       *flexInt        `json:"commentsCount"`
	Shares      flexInt         `json:"shares"`
	Views       flexInt         `json:"views"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	MediaURL    string          `json:"mediaUrl"`
	ImageURL    string          `json:"imageUrl"`
	Contact     string          `json:"contactMethod"`
	Link        string          `json:"link"`
	WhatsApp    string          `json:"whatsappNumber"`
	Impressions flexInt         `json:"impressions"`
	Clicks      flexInt         `json:"clicks"`
}

func (w wireEntry) id() string {
	return firstNonEmpty(w.ID, w.AltID)
}

func (w wireEntry) isAd() bool {
	return w.IsAd || strings.EqualFold(w.Type, "ad") || strings.EqualFold(w.Type, "sponsored")
}

func (w wireEntry) post() models.Post {
	content := models.PostContent{Text: w.Text, ImageURL: w.Image, VideoURL: w.Video}

	var text string
	if json.Unmarshal(w.Content, &text) == nil {
		content.Text = text
	} else {
		var obj struct {
			Text  string `json:"text"`
			Image string `json:"image"`
			Video string `json:"video"`
		}
		if lenient(w.Content, &obj) {
			content.Text = firstNonEmpty(obj.Text, content.Text)
			content.ImageURL = firstNonEmpty(obj.Image, content.ImageURL)
			content.VideoURL = firstNonEmpty(obj.Video, content.VideoURL)
		}
	}
	content.Text = plainText(content.Text)
	if content.ImageURL != "" {
		content.VideoURL = ""
	}

	p := models.Post{
		ID:        w.id(),
		Author:    pickRef(w.Author, w.User),
		Content:   content,
		CreatedAt: time.Time(w.CreatedAt),
		Likes:     w.Likes,
		Shares:    int(w.Shares),
		Views:     int(w.Views),
	}

	var n flexInt
	switch {
	case len(w.Comments) > 0 && w.Comments[0] == '[':
		p.Comments = decodeComments(w.Comments, p.ID)
		p.CommentsCount = len(p.Comments)
	case len(w.Comments) > 0 && json.Unmarshal(w.Comments, &n) == nil:
		p.CommentsCount = int(n)
	}
	if w.Count != nil {
		p.CommentsCount = int(*w.Count)
	}
	return p
}

func (w wireEntry) ad() models.Ad {
	contact := models.ParseContactMethod(w.Contact)
	value := w.Link
	if contact == models.ContactWhatsApp {
		value = w.WhatsApp
	}
	return models.Ad{
		ID:            w.id(),
		Author:        pickRef(w.Author, w.User),
		Title:         w.Title,
		Description:   plainText(w.Description),
		MediaURL:      firstNonEmpty(w.MediaURL, w.ImageURL, w.Image, w.Video),
		ContactMethod: contact,
		ContactValue:  value,
		Likes:         w.Likes,
		Impressions:   int(w.Impressions),
		Clicks:        int(w.Clicks),
	}
}

func decodeAds(data []byte) []models.Ad {
	list := unwrapList(data, "ads", "data")
	ads := make([]models.Ad, 0, len(list))
	for _, raw := range list {
		var w wireEntry
		if !lenient(raw, &w) || w.id() == "" {
			continue
		}
		ads = append(ads, w.ad())
	}
	return ads
}

type wireProfile struct {
	ID             string  `json:"_id"`
	AltID          string  `json:"id"`
	Username       string  `json:"username"`
	Name           string  `json:"name"`
	FullName       string  `json:"fullName"`
	ProfilePicture string  `json:"profilePicture"`
	Avatar         string  `json:"avatar"`
	Verified       bool    `json:"verified"`
	IsVerified     bool    `json:"isVerified"`
	Followers      flexInt `json:"followers"`
}

func decodeProfiles(data []byte) []models.Profile {
	list := unwrapList(data, "users", "suggestions", "data")
	profiles := make([]models.Profile, 0, len(list))
	for _, raw := range list {
		var w wireProfile
		if !lenient(raw, &w) {
			continue
		}
		id := firstNonEmpty(w.ID, w.AltID)
		if id == "" {
			continue
		}
		profiles = append(profiles, models.Profile{
			ID:          id,
			Username:    w.Username,
			DisplayName: firstNonEmpty(w.FullName, w.Name),
			AvatarURL:   firstNonEmpty(w.ProfilePicture, w.Avatar),
			Verified:    w.Verified || w.IsVerified,
			Followers:   int(w.Followers),
		})
	}
	return profiles
}

type wireConversation struct {
	ID           string          `json:"_id"`
	AltID        string          `json:"id"`
	Participants []wireRef       `json:"participants"`
	LastMessage  json.RawMessage `json:"lastMessage"`
	Unread       flexInt         `json:"unreadCount"`
	UpdatedAt    flexTime        `json:"updatedAt"`
}

func decodeConversations(data []byte) []models.Conversation {
	list := unwrapList(data, "conversations", "data")
	out := make([]models.Conversation, 0, len(list))
	for _, raw := range list {
		var w wireConversation
		if !lenient(raw, &w) {
			continue
		}
		id := firstNonEmpty(w.ID, w.AltID)
		if id == "" {
			continue
		}

		var last string
		if json.Unmarshal(w.LastMessage, &last) != nil {
			var msg struct {
				Text    string `json:"text"`
				Content string `json:"content"`
			}
			if lenient(w.LastMessage, &msg) {
				last = firstNonEmpty(msg.Text, msg.Content)
			}
		}

		participants := make([]models.UserRef, 0, len(w.Participants))
		for _, p := range w.Participants {
			participants = append(participants, p.ref)
		}

		out = append(out, models.Conversation{
			ID:           id,
			Participants: participants,
			LastMessage:  plainText(last),
			UnreadCount:  int(w.Unread),
			UpdatedAt:    time.Time(w.UpdatedAt),
		})
	}
	return out
}

// plainText strips markup from rich-text bodies. Plain strings pass through.
func plainText(s string) string {
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	doc.Find("br").ReplaceWithHtml("\n")
	return strings.TrimSpace(doc.Text())
}

func pickRef(refs ...wireRef) models.UserRef {
	for _, r := range refs {
		if r.ref.ID != "" || r.ref.Username != "" {
			return r.ref
		}
	}
	return models.UserRef{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
