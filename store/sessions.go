package store

import (
	"database/sql"
	"time"
)

// Session is one logged-in device of a user.
type Session struct {
	ID         int64     `json:"id"`
	Token      string    `json:"-"`
	UserID     int64     `json:"user_id"`
	Device     string    `json:"device"`
	IP         string    `json:"ip"`
	CreatedAt  time.Time `json:"created_at"`
	LastActive time.Time `json:"last_active"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// SessionInfo is a session joined with its owner.
type SessionInfo struct {
	Session
	Username string `json:"username"`
	Role     string `json:"role"`
}

// CreateSession purges expired sessions, evicts the user's least recently
// active sessions so that at most maxPerUser remain including the new one,
// and inserts s. A maxPerUser of 0 or less disables the cap. The evicted
// tokens are returned. On PostgreSQL the user row is locked for the duration
// so concurrent logins of one user serialize.
func (db *DB) CreateSession(s *Session, maxPerUser int, now time.Time) ([]string, error) {
	var evicted []string
	err := db.withTx(func(t *tx) error {
		if _, err := t.exec(`DELETE FROM user_sessions WHERE expires_at <= ?`, FormatTime(now)); err != nil {
			return err
		}

		lock := `SELECT id FROM users WHERE id = ?`
		if db.driver == "postgres" {
			lock += ` FOR UPDATE`
		}
		var uid int64
		if err := t.queryRow(lock, s.UserID).Scan(&uid); err != nil {
			return classify(err)
		}

		if maxPerUser > 0 {
			rows, err := t.query(`SELECT token FROM user_sessions WHERE user_id = ? ORDER BY last_active ASC, id ASC`, s.UserID)
			if err != nil {
				return err
			}
			var tokens []string
			for rows.Next() {
				var tok string
				if err := rows.Scan(&tok); err != nil {
					rows.Close()
					return err
				}
				tokens = append(tokens, tok)
			}
			rows.Close()
			if err := rows.Err(); err != nil {
				return err
			}
			if overflow := len(tokens) - (maxPerUser - 1); overflow > 0 {
				for _, tok := range tokens[:overflow] {
					if _, err := t.exec(`DELETE FROM user_sessions WHERE token = ?`, tok); err != nil {
						return err
					}
					evicted = append(evicted, tok)
				}
			}
		}

		return classify(t.queryRow(`INSERT INTO user_sessions (user_id, token, device, ip, created_at, last_active, expires_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`,
			s.UserID, s.Token, nullString(s.Device), nullString(s.IP),
			FormatTime(s.CreatedAt), FormatTime(s.LastActive), FormatTime(s.ExpiresAt)).Scan(&s.ID))
	})
	if err != nil {
		return nil, err
	}
	return evicted, nil
}

// PurgeExpiredSessions deletes every session whose expiry is at or before now.
func (db *DB) PurgeExpiredSessions(now time.Time) (int64, error) {
	res, err := db.exec(`DELETE FROM user_sessions WHERE expires_at <= ?`, FormatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetSessionByToken returns the session and its owner.
func (db *DB) GetSessionByToken(token string) (*SessionInfo, error) {
	info := &SessionInfo{}
	var device, ip sql.NullString
	var created, last, expires string
	err := db.queryRow(`SELECT s.id, s.token, s.user_id, s.device, s.ip, s.created_at, s.last_active, s.expires_at,
		u.username, u.role
		FROM user_sessions s JOIN users u ON u.id = s.user_id WHERE s.token = ?`, token).
		Scan(&info.ID, &info.Token, &info.UserID, &device, &ip, &created, &last, &expires, &info.Username, &info.Role)
	if err != nil {
		return nil, classify(err)
	}
	info.Device, info.IP = device.String, ip.String
	info.CreatedAt, info.LastActive, info.ExpiresAt = scanTime(created), scanTime(last), scanTime(expires)
	return info, nil
}

// TouchSession sets the session's last-active time.
func (db *DB) TouchSession(token string, now time.Time) error {
	_, err := db.exec(`UPDATE user_sessions SET last_active = ? WHERE token = ?`, FormatTime(now), token)
	return err
}

// DeleteSession removes a session. Deleting an absent token is not an error.
func (db *DB) DeleteSession(token string) error {
	_, err := db.exec(`DELETE FROM user_sessions WHERE token = ?`, token)
	return err
}

// ListUserSessions returns a user's sessions, most recently active first.
func (db *DB) ListUserSessions(userID int64) ([]Session, error) {
	rows, err := db.query(`SELECT id, user_id, device, ip, created_at, last_active, expires_at
		FROM user_sessions WHERE user_id = ? ORDER BY last_active DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var s Session
		var device, ip sql.NullString
		var created, last, expires string
		if err := rows.Scan(&s.ID, &s.UserID, &device, &ip, &created, &last, &expires); err != nil {
			return nil, err
		}
		s.Device, s.IP = device.String, ip.String
		s.CreatedAt, s.LastActive, s.ExpiresAt = scanTime(created), scanTime(last), scanTime(expires)
		out = append(out, s)
	}
	return out, rows.Err()
}
