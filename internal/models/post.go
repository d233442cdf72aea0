package models

import (
	"fmt"
	"time"
)

// Post is a training-feed post pulled from the remote store into the local
// cache during collection syncs.
type Post struct {
	ID           string `json:"id"`
	AuthorID     string `json:"author_id"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	MediaURL     string `json:"media_url,omitempty"`
	LikeCount    int    `json:"like_count"`
	CommentCount int    `json:"comment_count"`
	Version      int    `json:"version"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
}

// PostFromSnapshot maps a raw server record into a Post. Records missing the
// id field are rejected; all other fields default to their zero values so a
// partially malformed record still maps.
func PostFromSnapshot(s EntitySnapshot) (*Post, error) {
	id, ok := s.String("id")
	if !ok || id == "" {
		return nil, fmt.Errorf("post record missing id")
	}

	p := &Post{ID: id, Version: s.Version()}
	p.AuthorID, _ = s.String("author_id")
	p.Title, _ = s.String("title")
	p.Body, _ = s.String("body")
	p.MediaURL, _ = s.String("media_url")
	p.LikeCount, _ = s.Int("like_count")
	p.CommentCount, _ = s.Int("comment_count")
	if v, ok := s.Int("created_at"); ok {
		p.CreatedAt = int64(v)
	}
	if v, ok := s.Int("updated_at"); ok {
		p.UpdatedAt = int64(v)
	}
	return p, nil
}

// UpdatedAtTime returns UpdatedAt as time.Time.
func (p *Post) UpdatedAtTime() time.Time {
	return time.Unix(p.UpdatedAt, 0)
}
