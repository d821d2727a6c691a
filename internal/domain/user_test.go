package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUser_DisplayName(t *testing.T) {
	assert.Equal(t, "reader", (&User{Username: "reader"}).DisplayName())
	assert.Equal(t, "读者", (&User{Username: "reader", Nickname: "读者"}).DisplayName())
}

func TestUser_HasRole(t *testing.T) {
	u := &User{Roles: "user, ADMIN"}
	assert.True(t, u.HasRole("admin"))
	assert.True(t, u.HasRole("user"))
	assert.False(t, u.HasRole("editor"))
	assert.False(t, (&User{}).HasRole("user"))
}

func TestSourceGroups(t *testing.T) {
	sources := []BookSource{
		{SourceGroup: "小说"},
		{SourceGroup: ""},
		{SourceGroup: "English"},
		{SourceGroup: "小说"},
	}
	assert.Equal(t, []string{"小说", "English"}, SourceGroups(sources))
	assert.Empty(t, SourceGroups(nil))
}

func TestBook_Display(t *testing.T) {
	b := Book{CoverURL: "https://c/1.jpg", Intro: "  intro \n"}
	assert.Equal(t, "https://c/1.jpg", b.DisplayCover())
	assert.Equal(t, "intro", b.DisplayIntro())

	b.CustomCoverURL = "https://c/custom.jpg"
	b.CustomIntro = "mine"
	assert.Equal(t, "https://c/custom.jpg", b.DisplayCover())
	assert.Equal(t, "mine", b.DisplayIntro())
}
