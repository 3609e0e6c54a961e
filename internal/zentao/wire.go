package zentao

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ZenTao is loose about JSON types: ids arrive as numbers or strings, user
// references as ids, accounts, or embedded objects, and dates in several
// layouts. The wire types below absorb that so domain records stay typed.

var null = []byte("null")

func unquote(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			return strings.TrimSpace(s), true
		}
	}
	return "", false
}

type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), null) {
		*f = 0
		return nil
	}
	if s, ok := unquote(data); ok {
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*f = flexInt(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}

type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), null) {
		*f = 0
		return nil
	}
	if s, ok := unquote(data); ok {
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", s)
		}
		*f = flexFloat(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexFloat(n)
	return nil
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// flexTime is absent for null, empty, and ZenTao's zero dates.
type flexTime struct {
	t *time.Time
}

func (f *flexTime) UnmarshalJSON(data []byte) error {
	f.t = nil
	s, ok := unquote(data)
	if !ok || s == "" || strings.HasPrefix(s, "0000-00-00") {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			f.t = &t
			return nil
		}
	}
	// Unparseable dates are dropped rather than failing the whole record.
	return nil
}

// userRef is a reference to a user in any of the shapes ZenTao emits.
type userRef struct {
	present  bool
	id       int
	account  string
	realname string
	embedded bool
}

func (r *userRef) UnmarshalJSON(data []byte) error {
	*r = userRef{}
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, null):
		return nil
	case data[0] == '{':
		var obj userWire
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*r = userRef{
			present:  obj.ID != 0 || obj.Account != "",
			id:       int(obj.ID),
			account:  obj.Account,
			realname: obj.Realname,
			embedded: true,
		}
		return nil
	case data[0] == '"':
		s, _ := unquote(data)
		if s == "" {
			return nil
		}
		if n, err := strconv.Atoi(s); err == nil {
			if n != 0 {
				*r = userRef{present: true, id: n}
			}
			return nil
		}
		*r = userRef{present: true, account: s}
		return nil
	default:
		var n flexInt
		if err := n.UnmarshalJSON(data); err != nil {
			return err
		}
		if n != 0 {
			*r = userRef{present: true, id: int(n)}
		}
		return nil
	}
}

// resolve turns a reference into a user. Unknown numeric ids become nil so a
// dangling id never reaches callers.
func (r userRef) resolve(dir *Directory) *User {
	if !r.present {
		return nil
	}
	if r.id != 0 {
		if u, ok := dir.ByID(r.id); ok {
			cp := *u
			return &cp
		}
	}
	if r.account != "" {
		if u, ok := dir.ByAccount(r.account); ok {
			cp := *u
			return &cp
		}
	}
	if r.embedded || r.account != "" {
		return &User{ID: r.id, Account: r.account, Realname: r.realname}
	}
	return nil
}

type userWire struct {
	ID       flexInt `json:"id"`
	Account  string  `json:"account"`
	Realname string  `json:"realname"`
	Email    string  `json:"email"`
	Avatar   string  `json:"avatar"`
}

func (w userWire) toUser() User {
	return User{ID: int(w.ID), Account: w.Account, Realname: w.Realname, Email: w.Email, Avatar: w.Avatar}
}

type taskWire struct {
	ID           flexInt   `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	Pri          flexInt   `json:"pri"`
	Type         string    `json:"type"`
	AssignedTo   userRef   `json:"assignedTo"`
	OpenedBy     userRef   `json:"openedBy"`
	FinishedBy   userRef   `json:"finishedBy"`
	OpenedDate   flexTime  `json:"openedDate"`
	AssignedDate flexTime  `json:"assignedDate"`
	FinishedDate flexTime  `json:"finishedDate"`
	Deadline     flexTime  `json:"deadline"`
	Estimate     flexFloat `json:"estimate"`
	Consumed     flexFloat `json:"consumed"`
	Left         flexFloat `json:"left"`
	Parent       flexInt   `json:"parent"`
	Story        flexInt   `json:"story"`
	Module       flexInt   `json:"module"`
	Desc         string    `json:"desc"`
}

func (w taskWire) toTask(dir *Directory) Task {
	return Task{
		ID:           int(w.ID),
		Title:        w.Name,
		Status:       w.Status,
		Priority:     int(w.Pri),
		Type:         w.Type,
		AssignedTo:   w.AssignedTo.resolve(dir),
		OpenedBy:     w.OpenedBy.resolve(dir),
		FinishedBy:   w.FinishedBy.resolve(dir),
		OpenedDate:   w.OpenedDate.t,
		AssignedDate: w.AssignedDate.t,
		FinishedDate: w.FinishedDate.t,
		Deadline:     w.Deadline.t,
		Estimate:     float64(w.Estimate),
		Consumed:     float64(w.Consumed),
		Left:         float64(w.Left),
		Parent:       int(w.Parent),
		Story:        int(w.Story),
		Module:       int(w.Module),
		Description:  w.Desc,
	}
}

type storyWire struct {
	ID           flexInt   `json:"id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	Pri          flexInt   `json:"pri"`
	AssignedTo   userRef   `json:"assignedTo"`
	OpenedBy     userRef   `json:"openedBy"`
	OpenedDate   flexTime  `json:"openedDate"`
	AssignedDate flexTime  `json:"assignedDate"`
	Estimate     flexFloat `json:"estimate"`
	Spec         string    `json:"spec"`
	Module       flexInt   `json:"module"`
	Product      flexInt   `json:"product"`
}

func (w storyWire) toStory(dir *Directory) Story {
	return Story{
		ID:           int(w.ID),
		Title:        w.Title,
		Status:       w.Status,
		Priority:     int(w.Pri),
		AssignedTo:   w.AssignedTo.resolve(dir),
		OpenedBy:     w.OpenedBy.resolve(dir),
		OpenedDate:   w.OpenedDate.t,
		AssignedDate: w.AssignedDate.t,
		Estimate:     float64(w.Estimate),
		Spec:         w.Spec,
		Module:       int(w.Module),
		Product:      int(w.Product),
	}
}

type loginRequest struct {
	Account  string `json:"account"`
	Password string `json:"password"`
}

type createTaskRequest struct {
	Name       string `json:"name"`
	AssignedTo string `json:"assignedTo,omitempty"`
	Parent     int    `json:"parent,omitempty"`
}

type assignTaskRequest struct {
	AssignedTo string `json:"assignedTo"`
}
