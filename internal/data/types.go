package data

// Transaction mirrors one row of the card transaction dumps the trainer consumes.
type Transaction struct {
	TransDateTime string  `json:"trans_date_trans_time"`
	CCNum         float64 `json:"cc_num"`
	Merchant      string  `json:"merchant"`
	Category      string  `json:"category"`
	Amount        float64 `json:"amt"`
	First         string  `json:"first"`
	Last          string  `json:"last"`
	Gender        string  `json:"gender"`
	Street        string  `json:"street"`
	City          string  `json:"city"`
	State         string  `json:"state"`
	Zip           string  `json:"zip"`
	Lat           float64 `json:"lat"`
	Long          float64 `json:"long"`
	CityPop       float64 `json:"city_pop"`
	Job           string  `json:"job"`
	DOB           string  `json:"dob"`
	TransNum      string  `json:"trans_num"`
	UnixTime      float64 `json:"unix_time"`
	MerchLat      float64 `json:"merch_lat"`
	MerchLong     float64 `json:"merch_long"`
	IsFraud       int     `json:"is_fraud"`
}

const LabelColumn = "is_fraud"

// Columns is the raw layout of a transaction dump after the unnamed index column.
var Columns = []string{
	"trans_date_trans_time", "cc_num", "merchant", "category", "amt",
	"first", "last", "gender", "street", "city", "state", "zip",
	"lat", "long", "city_pop", "job", "dob", "trans_num", "unix_time",
	"merch_lat", "merch_long", LabelColumn,
}
