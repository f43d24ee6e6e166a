package world

import (
	"github.com/benchbase/worldgate/db"
)

// language=PostgreSQL
const fetchWorldSQL = `SELECT * FROM world WHERE id = $1`

// language=PostgreSQL
const updateWorldSQL = `UPDATE world SET randomnumber = $1 WHERE id = $2`

// language=PostgreSQL
const fortunesSQL = `SELECT * FROM fortune`

// decodeWorld reads (id, randomnumber) by position.
func decodeWorld(row db.Row) (w World, err error) {
	if w.ID, err = row.Int32(0); err != nil {
		return World{}, err
	}
	if w.RandomNumber, err = row.Int32(1); err != nil {
		return World{}, err
	}
	return w, nil
}

// decodeFortune reads (id, message) by position.
func decodeFortune(row db.Row) (f Fortune, err error) {
	if f.ID, err = row.Int32(0); err != nil {
		return Fortune{}, err
	}
	if f.Message, err = row.Text(1); err != nil {
		return Fortune{}, err
	}
	return f, nil
}

// firstWorld decodes the first row of res. Only the first row is used even if the
// statement matched more than one.
func firstWorld(res *db.Result) (World, error) {
	row, ok := res.First()
	if !ok {
		return World{}, ErrNotFound
	}
	return decodeWorld(row)
}
