package timeline

import "time"

// permalinkHost is the public web host used for derived post links.
const permalinkHost = "https://x.com"

// Normalize flattens an upstream timeline payload into self-contained
// feed items, one per raw post, in the original order. Order encodes
// recency from upstream and is never re-sorted.
//
// Referenced media keys and author ids are resolved against index maps
// built once per payload. Dangling media keys are silently omitted; an
// unresolvable author yields a nil Author. The function is pure and
// total: missing includes, empty data, and dangling references degrade
// gracefully instead of failing.
func Normalize(payload *RawTimeline) []FeedItem {
	if payload == nil {
		return []FeedItem{}
	}

	byMediaKey := make(map[string]Media)
	byUserID := make(map[string]Author)
	if payload.Includes != nil {
		for _, m := range payload.Includes.Media {
			byMediaKey[m.MediaKey] = m
		}
		for _, u := range payload.Includes.Users {
			byUserID[u.ID] = u
		}
	}

	items := make([]FeedItem, 0, len(payload.Data))
	for _, post := range payload.Data {
		item := FeedItem{
			ID:   post.ID,
			Text: post.Text,
		}

		if post.CreatedAt != "" {
			if createdAt, err := time.Parse(time.RFC3339, post.CreatedAt); err == nil {
				item.CreatedAt = &createdAt
			}
		}

		if post.PublicMetrics != nil {
			// Copied verbatim: absent counts stay nil so the renderer
			// can tell "not requested" from zero.
			item.Metrics = *post.PublicMetrics
		}

		if post.Attachments != nil {
			for _, key := range post.Attachments.MediaKeys {
				if m, ok := byMediaKey[key]; ok {
					item.Media = append(item.Media, m)
				}
			}
		}

		if author, ok := byUserID[post.AuthorID]; ok {
			item.Author = &author
		}

		item.Permalink = permalink(item.Author, post.ID)
		items = append(items, item)
	}

	return items
}

// permalink derives the public post URL. Posts without a resolved
// author fall back to the generic i/web path.
func permalink(author *Author, postID string) string {
	username := "i/web"
	if author != nil && author.Username != "" {
		username = author.Username
	}
	return permalinkHost + "/" + username + "/status/" + postID
}
