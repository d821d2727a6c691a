package domain

// BookSource describes how the server scrapes one external site. The client
// treats the rule fields as opaque strings.
type BookSource struct {
	ID                 int64  `json:"id,omitempty"`
	SourceName         string `json:"sourceName" validate:"required,max=100"`
	SourceURL          string `json:"sourceUrl" validate:"required,httpurl"`
	SourceIcon         string `json:"sourceIcon,omitempty"`
	SourceGroup        string `json:"sourceGroup,omitempty"`
	Enabled            bool   `json:"enabled"`
	EnabledExplore     bool   `json:"enabledExplore"`
	Weight             int    `json:"weight"`
	CustomOrder        int    `json:"customOrder"`
	LoginURL           string `json:"loginUrl,omitempty"`
	LoginUI            string `json:"loginUi,omitempty"`
	LoginCheckJS       string `json:"loginCheckJs,omitempty"`
	BookURLPattern     string `json:"bookUrlPattern,omitempty"`
	Header             string `json:"header,omitempty"`
	SearchURL          string `json:"searchUrl,omitempty"`
	ExploreURL         string `json:"exploreUrl,omitempty"`
	RuleSearch         string `json:"ruleSearch,omitempty"`
	RuleBookInfo       string `json:"ruleBookInfo,omitempty"`
	RuleToc            string `json:"ruleToc,omitempty"`
	RuleContent        string `json:"ruleContent,omitempty"`
	RuleReview         string `json:"ruleReview,omitempty"`
	LastUpdateTime     int64  `json:"lastUpdateTime,omitempty"`
	RespondTime        int64  `json:"respondTime,omitempty"`
	ContentReplaceRule string `json:"contentReplaceRule,omitempty"`
	CreatedAt          string `json:"createdAt,omitempty"`
	UpdatedAt          string `json:"updatedAt,omitempty"`
}

// IsNew reports whether the source has not been saved on the server yet.
func (s *BookSource) IsNew() bool {
	return s.ID == 0
}

// SourceGroups returns the distinct non-empty groups in first-seen order.
func SourceGroups(sources []BookSource) []string {
	seen := make(map[string]struct{}, len(sources))
	groups := make([]string, 0)
	for _, s := range sources {
		if s.SourceGroup == "" {
			continue
		}
		if _, ok := seen[s.SourceGroup]; ok {
			continue
		}
		seen[s.SourceGroup] = struct{}{}
		groups = append(groups, s.SourceGroup)
	}
	return groups
}
