package model

import (
	"time"
)

// FlowRecord represents one observed network connection with aggregated traffic statistics
type FlowRecord struct {
	ID int64 `json:"id"`

	SrcIP      string `json:"src_ip"`
	DstIP      string `json:"dst_ip"`
	SrcPort    int    `json:"src_port"`
	DstPort    int    `json:"dst_port"`
	SrcCountry string `json:"src_country"`
	DstCountry string `json:"dst_country"`

	Proto   string `json:"proto"`
	Service string `json:"service"`
	State   string `json:"state"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Dur       float64   `json:"dur"`

	Spkts  int64   `json:"spkts"`
	Dpkts  int64   `json:"dpkts"`
	Sbytes int64   `json:"sbytes"`
	Dbytes int64   `json:"dbytes"`
	Rate   float64 `json:"rate"`

	Sttl   int     `json:"sttl"`
	Dttl   int     `json:"dttl"`
	Sload  float64 `json:"sload"`
	Dload  float64 `json:"dload"`
	Sloss  int64   `json:"sloss"`
	Dloss  int64   `json:"dloss"`
	Sinpkt float64 `json:"sinpkt"`
	Dinpkt float64 `json:"dinpkt"`
	Sjit   float64 `json:"sjit"`
	Djit   float64 `json:"djit"`

	Swin   int     `json:"swin"`
	Dwin   int     `json:"dwin"`
	Stcpb  int64   `json:"stcpb"`
	Dtcpb  int64   `json:"dtcpb"`
	Tcprtt float64 `json:"tcprtt"`
	Synack float64 `json:"synack"`
	Ackdat float64 `json:"ackdat"`

	Anomaly     bool        `json:"anomaly"`
	AnomalyType AnomalyType `json:"anomaly_type"`
}

// AnomalyType is the tag of the heuristic that flagged a record
type AnomalyType string

const (
	AnomalyNone            AnomalyType = ""
	AnomalyDDoS            AnomalyType = "ddos"
	AnomalyWrongTTL        AnomalyType = "misconfig:wrong_ttl"
	AnomalyWindowSize      AnomalyType = "misconfig:window_size"
	AnomalyPacketSize      AnomalyType = "misconfig:packet_size"
	AnomalyNonstandardPort AnomalyType = "nonstandard_port"
)

// AnomalyTypes lists every tag the rule engine can assign, in rule order
var AnomalyTypes = []AnomalyType{
	AnomalyDDoS,
	AnomalyWrongTTL,
	AnomalyWindowSize,
	AnomalyPacketSize,
	AnomalyNonstandardPort,
}

func (t AnomalyType) String() string {
	return string(t)
}

// ServiceUnknown marks a record whose service could not be identified
const ServiceUnknown = "-"

// StandardPorts maps a service to its conventional destination port.
var StandardPorts = map[string]int{
	"http":   80,
	"https":  443,
	"dns":    53,
	"ftp":    21,
	"ssh":    22,
	"smtp":   25,
	"pop3":   110,
	"imap":   143,
	"telnet": 23,
	"ntp":    123,
	"dhcp":   67,
	"rdp":    3389,
	"vnc":    5900,
}

// SetLabel assigns the anomaly tag; the flag is derived from it so the two never disagree
func (r *FlowRecord) SetLabel(t AnomalyType) {
	r.AnomalyType = t
	r.Anomaly = t != AnomalyNone
}

// Table is an in-memory set of flow records with the columns it was built from
type Table struct {
	Columns []string     `json:"columns"`
	Ignored []string     `json:"ignored,omitempty"`
	Records []FlowRecord `json:"records"`
	Labeled bool         `json:"labeled"`
}

// NewTable creates a table carrying every schema column
func NewTable(records []FlowRecord) *Table {
	cols := make([]string, len(Columns))
	copy(cols, Columns)
	return &Table{
		Columns: cols,
		Records: records,
	}
}

// HasColumn reports whether the table was built with the named column
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// MissingColumns returns the names from required that the table lacks
func (t *Table) MissingColumns(required []string) []string {
	var missing []string
	for _, name := range required {
		if !t.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

func (t *Table) Len() int {
	return len(t.Records)
}

// AnomalyCount returns the number of labeled anomalous records
func (t *Table) AnomalyCount() int {
	n := 0
	for i := range t.Records {
		if t.Records[i].Anomaly {
			n++
		}
	}
	return n
}

// Clone copies the records and column lists so the copy can be relabeled
// without touching t
func (t *Table) Clone() *Table {
	c := &Table{
		Columns: append([]string(nil), t.Columns...),
		Ignored: append([]string(nil), t.Ignored...),
		Records: make([]FlowRecord, len(t.Records)),
		Labeled: t.Labeled,
	}
	copy(c.Records, t.Records)
	return c
}
