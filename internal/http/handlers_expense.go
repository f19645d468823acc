package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"kakeibo/internal/core"
	"kakeibo/internal/log"
)

type listPage struct {
	Title    string
	Active   string
	Flash    *Flash
	Expenses []core.Expense
	Total    core.Yen
}

type formPage struct {
	Title      string
	Active     string
	Flash      *Flash
	Action     string
	Submit     string
	Form       expenseForm
	Categories []core.Category
}

type deletePage struct {
	Title   string
	Active  string
	Flash   *Flash
	Expense core.Expense
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.List(r.Context())
	if err != nil {
		s.events.LogError(r.Context(), "List expenses failed", err, log.OpList, nil)
		http.Error(w, "支出の取得に失敗しました", http.StatusInternalServerError)
		return
	}
	var total core.Yen
	for _, e := range expenses {
		total += e.Amount
	}
	s.render(w, r, http.StatusOK, "expense_list.html", listPage{
		Title:    "支出一覧",
		Active:   "list",
		Flash:    popFlash(w, r),
		Expenses: expenses,
		Total:    total,
	})
}

func (s *Server) handleNew(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, r, http.StatusOK, "/expenses/new", "登録", newExpenseForm(time.Now()), nil)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "リクエスト形式が正しくありません", http.StatusBadRequest)
		return
	}
	form := parseExpenseForm(r.PostForm)
	e := form.Expense()
	if !form.Valid() {
		s.renderForm(w, r, http.StatusUnprocessableEntity, "/expenses/new", "登録", form, invalidInputFlash)
		return
	}
	if _, err := s.expenses.Create(r.Context(), e); err != nil {
		s.saveFailed(w, r, err, log.OpCreate, "/expenses/new", "登録", form)
		return
	}
	setFlash(w, "created")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadExpense(w, r)
	if !ok {
		return
	}
	s.renderForm(w, r, http.StatusOK, editPath(e.ID), "更新", formFromExpense(e), nil)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "リクエスト形式が正しくありません", http.StatusBadRequest)
		return
	}
	form := parseExpenseForm(r.PostForm)
	e := form.Expense()
	if !form.Valid() {
		s.renderForm(w, r, http.StatusUnprocessableEntity, editPath(id), "更新", form, invalidInputFlash)
		return
	}
	e.ID = id
	if err := s.expenses.Update(r.Context(), e); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.missing(w, r)
			return
		}
		s.saveFailed(w, r, err, log.OpUpdate, editPath(id), "更新", form)
		return
	}
	setFlash(w, "updated")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	e, ok := s.loadExpense(w, r)
	if !ok {
		return
	}
	s.render(w, r, http.StatusOK, "expense_confirm_delete.html", deletePage{
		Title:   "支出の削除",
		Active:  "list",
		Expense: e,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.expenses.Delete(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.missing(w, r)
			return
		}
		s.events.LogError(r.Context(), "Delete expense failed", err, log.OpDelete,
			log.NewFields().WithExpenseID(id))
		http.Error(w, "支出の削除に失敗しました", http.StatusInternalServerError)
		return
	}
	setFlash(w, "deleted")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// saveFailed shows the form again after the store rejected a valid form.
func (s *Server) saveFailed(w http.ResponseWriter, r *http.Request, err error, op, action, submit string, form expenseForm) {
	form.Errors = map[string]string{}
	form.addError(err)
	if _, unknown := form.Errors[""]; !unknown {
		s.renderForm(w, r, http.StatusUnprocessableEntity, action, submit, form, invalidInputFlash)
		return
	}
	s.events.LogError(r.Context(), "Save expense failed", err, op, nil)
	form.Errors = nil
	s.renderForm(w, r, http.StatusInternalServerError, action, submit, form,
		&Flash{Level: flashError, Message: "保存に失敗しました"})
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, status int, action, submit string, form expenseForm, flash *Flash) {
	title := "支出の登録"
	active := "new"
	if submit == "更新" {
		title = "支出の編集"
		active = "list"
	}
	s.render(w, r, status, "expense_form.html", formPage{
		Title:      title,
		Active:     active,
		Flash:      flash,
		Action:     action,
		Submit:     submit,
		Form:       form,
		Categories: core.Categories,
	})
}

func (s *Server) loadExpense(w http.ResponseWriter, r *http.Request) (core.Expense, bool) {
	id, ok := s.pathID(w, r)
	if !ok {
		return core.Expense{}, false
	}
	e, err := s.expenses.Get(r.Context(), id)
	if errors.Is(err, core.ErrNotFound) {
		s.missing(w, r)
		return core.Expense{}, false
	}
	if err != nil {
		s.events.LogError(r.Context(), "Get expense failed", err, log.OpList,
			log.NewFields().WithExpenseID(id))
		http.Error(w, "支出の取得に失敗しました", http.StatusInternalServerError)
		return core.Expense{}, false
	}
	return e, true
}

func (s *Server) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return 0, false
	}
	return id, true
}

// missing sends the user back to the list when an expense vanished.
func (s *Server) missing(w http.ResponseWriter, r *http.Request) {
	setFlash(w, "missing")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func editPath(id int64) string {
	return "/expenses/" + strconv.FormatInt(id, 10) + "/edit"
}
