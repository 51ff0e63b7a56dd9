package storage

import (
	"database/sql"

	// Register sqlite3 driver
	_ "github.com/mattn/go-sqlite3"
)

type DB interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	Close() error
}

type Store struct{ db DB }

func OpenSQLite(dsn string) (DB, error) {
	return sql.Open("sqlite3", dsn)
}

func InitSchema(db DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS queries(
		chat_id INTEGER, kind TEXT, commodity TEXT, state TEXT, market TEXT,
		qdate TEXT, result TEXT, value REAL, ts INTEGER
	)`)
	return err
}

func NewStore(db DB) *Store { return &Store{db: db} }

// QueryRecord is one logged prediction or recommendation.
type QueryRecord struct {
	Kind      string // "predict" or "crop"
	Commodity string
	State     string
	Market    string
	Date      string
	Result    string // recommended crop for "crop", empty for "predict"
	Value     float64
	TS        int64
}

func (s *Store) SavePrediction(chatID int64, commodity, state, market, date string, price float64, ts int64) error {
	_, err := s.db.Exec(`INSERT INTO queries(chat_id,kind,commodity,state,market,qdate,result,value,ts)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		chatID, "predict", commodity, state, market, date, "", price, ts)
	return err
}

func (s *Store) SaveRecommendation(chatID int64, crop string, confidence float64, ts int64) error {
	_, err := s.db.Exec(`INSERT INTO queries(chat_id,kind,commodity,state,market,qdate,result,value,ts)
		VALUES(?,?,?,?,?,?,?,?,?)`,
		chatID, "crop", "", "", "", "", crop, confidence, ts)
	return err
}

// RecentQueries returns the chat's latest logged queries, newest first.
func (s *Store) RecentQueries(chatID int64, limit int) ([]QueryRecord, error) {
	rows, err := s.db.Query(`SELECT kind,commodity,state,market,qdate,result,value,ts
		FROM queries WHERE chat_id=? ORDER BY ts DESC LIMIT ?`, chatID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QueryRecord
	for rows.Next() {
		var r QueryRecord
		if err := rows.Scan(&r.Kind, &r.Commodity, &r.State, &r.Market, &r.Date, &r.Result, &r.Value, &r.TS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UsageByCommodity counts logged predictions per commodity since the given
// unix timestamp, feeding the /stats chart.
func (s *Store) UsageByCommodity(since int64) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT commodity, COUNT(*) FROM queries
		WHERE kind='predict' AND ts>=? GROUP BY commodity`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]int{}
	for rows.Next() {
		var c string
		var n int
		if err := rows.Scan(&c, &n); err != nil {
			return nil, err
		}
		if c != "" {
			out[c] = n
		}
	}
	return out, rows.Err()
}
