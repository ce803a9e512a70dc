// Package timeline normalizes the denormalized X API v2 timeline
// payload into a flat, renderable feed.
package timeline

import "time"

// Media is a media record from the includes set, keyed by MediaKey.
type Media struct {
	MediaKey        string `json:"media_key"`
	Type            string `json:"type"`
	URL             string `json:"url,omitempty"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
	Width           int    `json:"width,omitempty"`
	Height          int    `json:"height,omitempty"`
	AltText         string `json:"alt_text,omitempty"`
}

// Author is a user record from the includes set, keyed by ID.
type Author struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Username        string `json:"username"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	Verified        bool   `json:"verified,omitempty"`
}

// Metrics holds per-post engagement counts. Fields are pointers so the
// renderer can distinguish "not requested" from an actual zero.
type Metrics struct {
	ReplyCount   *int `json:"reply_count,omitempty"`
	RetweetCount *int `json:"retweet_count,omitempty"`
	LikeCount    *int `json:"like_count,omitempty"`
	QuoteCount   *int `json:"quote_count,omitempty"`
}

// Attachments carries a post's references into the media includes set.
type Attachments struct {
	MediaKeys []string `json:"media_keys,omitempty"`
}

// RawPost is an upstream-shaped post record. Media and author are
// foreign keys into the includes sets and may dangle.
type RawPost struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	CreatedAt     string       `json:"created_at,omitempty"`
	AuthorID      string       `json:"author_id,omitempty"`
	Attachments   *Attachments `json:"attachments,omitempty"`
	PublicMetrics *Metrics     `json:"public_metrics,omitempty"`
}

// Includes holds the referenced record sets of a timeline payload.
type Includes struct {
	Media []Media  `json:"media,omitempty"`
	Users []Author `json:"users,omitempty"`
}

// RawTimeline is the upstream-shaped timeline payload: an ordered post
// sequence plus the record sets its posts reference.
type RawTimeline struct {
	Data     []RawPost `json:"data"`
	Includes *Includes `json:"includes,omitempty"`
}

// FeedItem is a self-contained, normalized post. Items are constructed
// once per gateway response and never mutated in place.
type FeedItem struct {
	ID        string
	Text      string
	CreatedAt *time.Time
	Metrics   Metrics
	Media     []Media
	Author    *Author
	Permalink string
}
