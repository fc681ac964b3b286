package store

// StageCount is the number of batch rows at one stage.
type StageCount struct {
	Stage string `json:"stage"`
	Count int    `json:"count"`
}

// PassRate summarises quality results of one test item.
type PassRate struct {
	TestItem string  `json:"test_item"`
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Rate     float64 `json:"rate"`
}

// Stats is the dashboard summary.
type Stats struct {
	TotalBatches     int          `json:"total_batches"`
	ActiveBatches    int          `json:"active_batches"`
	CompletedBatches int          `json:"completed_batches"`
	Stages           []StageCount `json:"stages"`
	PassRates        []PassRate   `json:"pass_rates"`
}

// DashboardStats counts batch rows by status and stage and computes the pass
// rate of every quality test item over its decided (pass or fail) results.
func (db *DB) DashboardStats(activeStatus, completedStatus string) (*Stats, error) {
	st := &Stats{}
	err := db.queryRow(`SELECT COUNT(*),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM batches`, activeStatus, completedStatus).
		Scan(&st.TotalBatches, &st.ActiveBatches, &st.CompletedBatches)
	if err != nil {
		return nil, err
	}

	rows, err := db.query(`SELECT process_segment, COUNT(*) FROM batches GROUP BY process_segment ORDER BY process_segment`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var sc StageCount
		if err := rows.Scan(&sc.Stage, &sc.Count); err != nil {
			rows.Close()
			return nil, err
		}
		st.Stages = append(st.Stages, sc)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.query(`SELECT test_item,
		COALESCE(SUM(CASE WHEN result = 'pass' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN result = 'fail' THEN 1 ELSE 0 END), 0)
		FROM quality_records GROUP BY test_item ORDER BY test_item`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var pr PassRate
		if err := rows.Scan(&pr.TestItem, &pr.Passed, &pr.Failed); err != nil {
			return nil, err
		}
		pr.Total = pr.Passed + pr.Failed
		if pr.Total > 0 {
			pr.Rate = float64(pr.Passed) / float64(pr.Total) * 100
		}
		st.PassRates = append(st.PassRates, pr)
	}
	return st, rows.Err()
}
