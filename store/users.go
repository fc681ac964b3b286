package store

import "time"

// Roles.
const (
	RoleAdmin         = "admin"
	RoleRead          = "read"
	RoleWrite         = "write"
	RoleWriteMaterial = "write_material"
	RoleWriteQuality  = "write_quality"
)

// Roles lists every known role.
var Roles = []string{RoleAdmin, RoleRead, RoleWrite, RoleWriteMaterial, RoleWriteQuality}

// IsRole reports whether r is a known role.
func IsRole(r string) bool {
	for _, v := range Roles {
		if v == r {
			return true
		}
	}
	return false
}

// User is an account that can log in.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

const userSelectCols = `id, username, password_hash, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	u := &User{}
	var createdAt string
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &createdAt); err != nil {
		return nil, classify(err)
	}
	u.CreatedAt = scanTime(createdAt)
	return u, nil
}

func (db *DB) GetUserByUsername(username string) (*User, error) {
	return scanUser(db.queryRow(`SELECT `+userSelectCols+` FROM users WHERE username = ?`, username))
}

func (db *DB) GetUser(id int64) (*User, error) {
	return scanUser(db.queryRow(`SELECT `+userSelectCols+` FROM users WHERE id = ?`, id))
}

func (db *DB) CreateUser(username, passwordHash, role string) (int64, error) {
	var id int64
	err := db.queryRow(`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		username, passwordHash, role, FormatTime(time.Now())).Scan(&id)
	if err != nil {
		return 0, classify(err)
	}
	return id, nil
}

func (db *DB) UpdateUserPassword(id int64, passwordHash string) error {
	res, err := db.exec(`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (db *DB) ListUsers() ([]User, error) {
	rows, err := db.query(`SELECT ` + userSelectCols + ` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
