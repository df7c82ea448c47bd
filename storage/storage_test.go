package storage

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"showroom-kpi/models"
)

var may2024 = models.Month{Year: 2024, Month: time.May}

func sampleTable() *models.Table {
	var row models.Row
	for i := range row {
		row[i] = models.Text("x")
	}
	row[0] = models.Text("acc-1")
	row[2] = models.Text("2024/05/01 20:15:00")
	row[3] = models.Int(1234)
	row[5] = models.Text("Room, \"quoted\"")
	row[6] = models.NullInt{Int64: 1234, Valid: true}
	row[7] = models.NullInt{}
	row[9] = models.NullFloat{Float64: 12.3, Valid: true}
	row[15] = models.NullInt{Int64: -5, Valid: true}
	return &models.Table{Month: may2024, Mode: models.ModeStrict, Rows: []models.Row{row}}
}

func TestEncodeCSV(t *testing.T) {
	data, err := EncodeCSV(sampleTable())
	require.NoError(t, err)

	require.True(t, bytes.HasPrefix(data, utf8BOM))
	records, err := csv.NewReader(bytes.NewReader(data[len(utf8BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, models.Header(), records[0])
	row := records[1]
	assert.Len(t, row, models.FieldCount)
	assert.Equal(t, "1234", row[3])
	assert.Equal(t, `Room, "quoted"`, row[5])
	assert.Equal(t, "1234", row[6])
	assert.Equal(t, "", row[7])
	assert.Equal(t, "12.3", row[9])
	assert.Equal(t, "-5", row[15])
}

func TestEncodeCSVEmptyTable(t *testing.T) {
	data, err := EncodeCSV(&models.Table{Month: may2024})
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\n"))
}

func TestLocalDirDeliver(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	l := LocalDir{Dir: dir}

	path, err := l.Deliver(context.Background(), may2024.ArtifactName(), []byte("first"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2024-05_all_all.csv"), path)

	_, err = l.Deliver(context.Background(), may2024.ArtifactName(), []byte("second"))
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files should be gone")
}

func TestFTPRemotePath(t *testing.T) {
	f := &FTPDeliverer{Host: "ftp.example.com", BasePath: "/public_html/kpi/"}
	assert.Equal(t, "/public_html/kpi/2024-05_all_all.csv", f.RemotePath(may2024.ArtifactName()))
	assert.Equal(t, "ftp.example.com:21", f.addr())

	f.Host = "ftp.example.com:2121"
	assert.Equal(t, "ftp.example.com:2121", f.addr())
}

func TestFTPDeliverConnectError(t *testing.T) {
	f := &FTPDeliverer{Host: "127.0.0.1:1", User: "u", Password: "p", Timeout: time.Second}
	_, err := f.Deliver(context.Background(), "x.csv", []byte("data"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
}

func TestXLSXWriter(t *testing.T) {
	x := &XLSXWriter{Dir: t.TempDir()}
	require.NoError(t, x.Save(context.Background(), sampleTable()))

	f, err := excelize.OpenFile(x.Path(may2024))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.Fields[0].Label, rows[0][0])
	assert.Equal(t, "acc-1", rows[1][0])
	assert.Equal(t, "1234", rows[1][3])
	assert.Equal(t, "", rows[1][7])
	assert.Equal(t, "-5", rows[1][15])
}

func TestInsertQuery(t *testing.T) {
	q := insertQuery(2)
	width := models.FieldCount + 2

	assert.True(t, strings.HasPrefix(q, "INSERT INTO live_kpi (month, mode, account_id, room_id,"))
	assert.Contains(t, q, "$1,$2,")
	assert.Contains(t, q, "($"+strconv.Itoa(width+1)+",")
	assert.True(t, strings.HasSuffix(q, "$"+strconv.Itoa(2*width)+") ON CONFLICT DO NOTHING"))
}

func TestSQLValue(t *testing.T) {
	assert.Nil(t, sqlValue(models.NullInt{}))
	assert.Nil(t, sqlValue(models.NullFloat{}))
	assert.Nil(t, sqlValue(nil))
	assert.Equal(t, int64(13), sqlValue(models.Int(13)))
	assert.Equal(t, "12.3", sqlValue(models.NullFloat{Float64: 12.3, Valid: true}))
	assert.Equal(t, "-", sqlValue(models.Text("-")))
}

func TestPostgresStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ps, err := NewPostgresStore(dsn)
	require.NoError(t, err)
	defer ps.Close()

	ctx := context.Background()
	table := sampleTable()
	require.NoError(t, ps.Save(ctx, table))
	require.NoError(t, ps.Save(ctx, table))

	var n int
	require.NoError(t, ps.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM live_kpi WHERE month = $1", may2024.Key()).Scan(&n))
	assert.Equal(t, table.Len(), n)
}
