package zentao

import "time"

// User is a tracker account.
type User struct {
	ID       int    `json:"id"`
	Account  string `json:"account"`
	Realname string `json:"realname,omitempty"`
	Email    string `json:"email,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// DisplayName prefers the real name.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Realname != "" {
		return u.Realname
	}
	return u.Account
}

// Story is a requirement record.
type Story struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	Priority     int        `json:"pri"`
	AssignedTo   *User      `json:"assigned_to,omitempty"`
	OpenedBy     *User      `json:"opened_by,omitempty"`
	OpenedDate   *time.Time `json:"opened_date,omitempty"`
	AssignedDate *time.Time `json:"assigned_date,omitempty"`
	Estimate     float64    `json:"estimate,omitempty"`
	Spec         string     `json:"spec,omitempty"`
	Module       int        `json:"module,omitempty"`
	Product      int        `json:"product,omitempty"`
}

// Task is a unit of work; Parent links subtasks to their parent.
type Task struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	Status       string     `json:"status"`
	Priority     int        `json:"pri"`
	Type         string     `json:"type,omitempty"`
	AssignedTo   *User      `json:"assigned_to,omitempty"`
	OpenedBy     *User      `json:"opened_by,omitempty"`
	FinishedBy   *User      `json:"finished_by,omitempty"`
	OpenedDate   *time.Time `json:"opened_date,omitempty"`
	AssignedDate *time.Time `json:"assigned_date,omitempty"`
	FinishedDate *time.Time `json:"finished_date,omitempty"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Estimate     float64    `json:"estimate,omitempty"`
	Consumed     float64    `json:"consumed,omitempty"`
	Left         float64    `json:"left,omitempty"`
	Parent       int        `json:"parent,omitempty"`
	Story        int        `json:"story,omitempty"`
	Module       int        `json:"module,omitempty"`
	Description  string     `json:"desc,omitempty"`
}

// TaskList is one page of tasks.
type TaskList struct {
	Tasks    []Task `json:"tasks"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

// StoryList is one page of stories.
type StoryList struct {
	Stories  []Story `json:"stories"`
	Total    int     `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// CreateTaskInput is the payload for creating a (sub)task.
type CreateTaskInput struct {
	Name       string
	AssignedTo string
	Parent     int
}

// LoginResult carries what a caller must persist to resume the session.
type LoginResult struct {
	Token   string
	Cookies map[string]string
	User    *User
}

// Directory indexes users by id and by account.
type Directory struct {
	Users     []User
	byID      map[int]*User
	byAccount map[string]*User
}

// NewDirectory indexes users.
func NewDirectory(users []User) *Directory {
	d := &Directory{
		Users:     users,
		byID:      make(map[int]*User, len(users)),
		byAccount: make(map[string]*User, len(users)),
	}
	for i := range users {
		u := &d.Users[i]
		if u.ID != 0 {
			d.byID[u.ID] = u
		}
		if u.Account != "" {
			d.byAccount[u.Account] = u
		}
	}
	return d
}

// ByID looks up a user by numeric id.
func (d *Directory) ByID(id int) (*User, bool) {
	if d == nil {
		return nil, false
	}
	u, ok := d.byID[id]
	return u, ok
}

// ByAccount looks up a user by login account.
func (d *Directory) ByAccount(account string) (*User, bool) {
	if d == nil {
		return nil, false
	}
	u, ok := d.byAccount[account]
	return u, ok
}
