package models

// Record is the structured engagement data extracted from one post page.
// Every field is independently optional; the zero value means "absent".
type Record struct {
	Author   string `json:"author,omitempty"`
	UserLink string `json:"user_link,omitempty"`

	Caption     string `json:"caption,omitempty"`
	Description string `json:"description,omitempty"`

	ReactionsRaw   string `json:"reactions_raw,omitempty"`
	ReactionsCount *int64 `json:"reactions_count,omitempty"`
	SharesRaw      string `json:"shares_raw,omitempty"`
	SharesCount    *int64 `json:"shares_count,omitempty"`
	CommentsRaw    string `json:"comments_raw,omitempty"`
	CommentsCount  *int64 `json:"comments_count,omitempty"`
	ViewsRaw       string `json:"views_raw,omitempty"`
	ViewsCount     *int64 `json:"views_count,omitempty"`

	Image  string   `json:"image,omitempty"`
	Images []string `json:"images,omitempty"`

	VideoURL             string   `json:"video_url,omitempty"`
	VideoType            string   `json:"video_type,omitempty"`
	VideoDurationSeconds *float64 `json:"video_duration_seconds,omitempty"`
	VideoThumbnail       string   `json:"video_thumbnail,omitempty"`
	VideoPoster          string   `json:"-"`

	PostDate     string `json:"post_date,omitempty"`
	CanonicalURL string `json:"canonical_url,omitempty"`
	ContentType  string `json:"content_type,omitempty"`

	// RawOG holds every captured og:* tag plus meta_description and page_title.
	RawOG map[string]string `json:"raw_og_data,omitempty"`
}

// Merge copies into r every field that is absent in r and present in fill.
// Fields already set in r are never overwritten. It returns the names of the
// fields it filled.
func (r *Record) Merge(fill Record) []string {
	var filled []string
	str := func(name string, dst *string, v string) {
		if *dst == "" && v != "" {
			*dst = v
			filled = append(filled, name)
		}
	}
	num := func(name string, dst **int64, v *int64) {
		if *dst == nil && v != nil {
			n := *v
			*dst = &n
			filled = append(filled, name)
		}
	}

	str("author", &r.Author, fill.Author)
	str("user_link", &r.UserLink, fill.UserLink)
	str("caption", &r.Caption, fill.Caption)
	str("description", &r.Description, fill.Description)
	str("reactions_raw", &r.ReactionsRaw, fill.ReactionsRaw)
	num("reactions_count", &r.ReactionsCount, fill.ReactionsCount)
	str("shares_raw", &r.SharesRaw, fill.SharesRaw)
	num("shares_count", &r.SharesCount, fill.SharesCount)
	str("comments_raw", &r.CommentsRaw, fill.CommentsRaw)
	num("comments_count", &r.CommentsCount, fill.CommentsCount)
	str("views_raw", &r.ViewsRaw, fill.ViewsRaw)
	num("views_count", &r.ViewsCount, fill.ViewsCount)
	str("image", &r.Image, fill.Image)
	if len(r.Images) == 0 && len(fill.Images) > 0 {
		r.Images = append([]string(nil), fill.Images...)
		filled = append(filled, "images")
	}
	str("video_url", &r.VideoURL, fill.VideoURL)
	str("video_type", &r.VideoType, fill.VideoType)
	if r.VideoDurationSeconds == nil && fill.VideoDurationSeconds != nil {
		d := *fill.VideoDurationSeconds
		r.VideoDurationSeconds = &d
		filled = append(filled, "video_duration_seconds")
	}
	str("video_thumbnail", &r.VideoThumbnail, fill.VideoThumbnail)
	str("video_poster", &r.VideoPoster, fill.VideoPoster)
	str("post_date", &r.PostDate, fill.PostDate)
	str("canonical_url", &r.CanonicalURL, fill.CanonicalURL)
	str("content_type", &r.ContentType, fill.ContentType)
	for k, v := range fill.RawOG {
		if v == "" {
			continue
		}
		if r.RawOG == nil {
			r.RawOG = make(map[string]string)
		}
		if _, ok := r.RawOG[k]; !ok {
			r.RawOG[k] = v
		}
	}
	return filled
}

// HasContent reports whether any post-level field was extracted. Raw OG
// data alone does not count: a generic shell page still carries a title.
func (r *Record) HasContent() bool {
	return r.Author != "" || r.Caption != "" || r.Description != "" ||
		r.ReactionsRaw != "" || r.SharesRaw != "" || r.CommentsRaw != "" || r.ViewsRaw != "" ||
		r.Image != "" || len(r.Images) > 0 || r.VideoURL != "" || r.CanonicalURL != ""
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	if r.Images != nil {
		out.Images = append([]string(nil), r.Images...)
	}
	if r.RawOG != nil {
		out.RawOG = make(map[string]string, len(r.RawOG))
		for k, v := range r.RawOG {
			out.RawOG[k] = v
		}
	}
	for _, p := range []**int64{&out.ReactionsCount, &out.SharesCount, &out.CommentsCount, &out.ViewsCount} {
		if *p != nil {
			v := **p
			*p = &v
		}
	}
	if r.VideoDurationSeconds != nil {
		d := *r.VideoDurationSeconds
		out.VideoDurationSeconds = &d
	}
	return out
}
