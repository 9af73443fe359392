package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var categories = []string{"grocery_pos", "gas_transport", "shopping_net", "misc_net", "entertainment", "food_dining", "travel"}
var jobs = []string{"Analyst", "Engineer", "Nurse", "Designer", "Accountant"}
var states = []string{"NY", "PA", "CA", "TX", "FL", "OH"}

// GenerateSyntheticTransactions writes n transactions in the raw dump layout,
// leading index column included. The same seed always yields the same file.
func GenerateSyntheticTransactions(n int, fraudRate float64, seed int64, outPath string) error {
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	if err := writeSynthetic(f, n, fraudRate, seed); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeSynthetic(out io.Writer, n int, fraudRate float64, seed int64) error {
	w := csv.NewWriter(out)
	header := append([]string{""}, Columns...)
	if err := w.Write(header); err != nil {
		return err
	}

	rnd := rand.New(rand.NewSource(seed))
	base := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	cards := make([]int64, 200)
	homes := make([][2]float64, len(cards))
	for i := range cards {
		cards[i] = 4000000000000000 + rnd.Int63n(999999999999)
		homes[i] = [2]float64{30 + rnd.Float64()*15, -120 + rnd.Float64()*45}
	}

	for i := 0; i < n; i++ {
		c := rnd.Intn(len(cards))
		lat, long := homes[c][0], homes[c][1]
		ts := base.Add(time.Duration(rnd.Intn(365*24*3600)) * time.Second)
		cat := categories[rnd.Intn(len(categories))]

		fraud := rnd.Float64() < fraudRate
		amount := math.Round((rnd.ExpFloat64()*60+1)*100) / 100
		spread := 1.0
		if fraud {
			amount = math.Round((200+rnd.Float64()*1000)*100) / 100
			spread = 8.0
		}
		merchLat := lat + (rnd.Float64()*2-1)*spread
		merchLong := long + (rnd.Float64()*2-1)*spread

		label := "0"
		if fraud {
			label = "1"
		}
		rec := []string{
			strconv.Itoa(i),
			ts.Format("2006-01-02 15:04:05"),
			strconv.FormatInt(cards[c], 10),
			fmt.Sprintf("fraud_Merchant %d", rnd.Intn(500)),
			cat,
			strconv.FormatFloat(amount, 'f', 2, 64),
			"First" + strconv.Itoa(c),
			"Last" + strconv.Itoa(c),
			[]string{"F", "M"}[c%2],
			strconv.Itoa(100+c) + " Main St",
			"City" + strconv.Itoa(c%40),
			states[c%len(states)],
			strconv.Itoa(10000 + c*37),
			strconv.FormatFloat(lat, 'f', 4, 64),
			strconv.FormatFloat(long, 'f', 4, 64),
			strconv.Itoa(500 + c*113),
			jobs[c%len(jobs)],
			"1980-01-01",
			fmt.Sprintf("%032x", rnd.Int63()),
			strconv.FormatInt(ts.Unix(), 10),
			strconv.FormatFloat(merchLat, 'f', 6, 64),
			strconv.FormatFloat(merchLong, 'f', 6, 64),
			label,
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
