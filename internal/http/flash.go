package http

import (
	"net/http"
)

const flashCookie = "kakeibo_flash"

type flashLevel string

const (
	flashSuccess flashLevel = "success"
	flashError   flashLevel = "error"
)

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Level   flashLevel
	Message string
}

// Flash codes travel in a cookie; the messages never leave the server.
var flashMessages = map[string]Flash{
	"created": {Level: flashSuccess, Message: "支出を登録しました"},
	"updated": {Level: flashSuccess, Message: "支出を更新しました"},
	"deleted": {Level: flashSuccess, Message: "支出を削除しました"},
	"missing": {Level: flashError, Message: "指定された支出が見つかりません"},
}

var invalidInputFlash = &Flash{Level: flashError, Message: "入力内容に誤りがあります"}

func setFlash(w http.ResponseWriter, code string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    code,
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	f, ok := flashMessages[c.Value]
	if !ok {
		return nil
	}
	return &f
}
