package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"flowlens/internal/model"
)

// TimeLayout is the timestamp format written for start_time and end_time
const TimeLayout = "2006-01-02 15:04:05.000000"

var timeLayouts = []string{
	TimeLayout,
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// field reads and writes one column of a FlowRecord as CSV text
type field struct {
	get func(r *model.FlowRecord) string
	set func(r *model.FlowRecord, s string) error
}

func intField(ptr func(r *model.FlowRecord) *int64) field {
	return field{
		get: func(r *model.FlowRecord) string { return strconv.FormatInt(*ptr(r), 10) },
		set: func(r *model.FlowRecord, s string) error {
			v, err := parseInt(s)
			if err != nil {
				return err
			}
			*ptr(r) = v
			return nil
		},
	}
}

func smallIntField(ptr func(r *model.FlowRecord) *int) field {
	return field{
		get: func(r *model.FlowRecord) string { return strconv.Itoa(*ptr(r)) },
		set: func(r *model.FlowRecord, s string) error {
			v, err := parseInt(s)
			if err != nil {
				return err
			}
			*ptr(r) = int(v)
			return nil
		},
	}
}

func floatField(ptr func(r *model.FlowRecord) *float64) field {
	return field{
		get: func(r *model.FlowRecord) string { return formatFloat(*ptr(r)) },
		set: func(r *model.FlowRecord, s string) error {
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return err
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("%q is not a finite number", s)
			}
			*ptr(r) = v
			return nil
		},
	}
}

func stringField(ptr func(r *model.FlowRecord) *string) field {
	return field{
		get: func(r *model.FlowRecord) string { return *ptr(r) },
		set: func(r *model.FlowRecord, s string) error {
			*ptr(r) = s
			return nil
		},
	}
}

func timeField(ptr func(r *model.FlowRecord) *time.Time) field {
	return field{
		get: func(r *model.FlowRecord) string { return ptr(r).Format(TimeLayout) },
		set: func(r *model.FlowRecord, s string) error {
			v, err := parseTime(s)
			if err != nil {
				return err
			}
			*ptr(r) = v
			return nil
		},
	}
}

var fields = map[string]field{
	model.ColID:         intField(func(r *model.FlowRecord) *int64 { return &r.ID }),
	model.ColSrcIP:      stringField(func(r *model.FlowRecord) *string { return &r.SrcIP }),
	model.ColDstIP:      stringField(func(r *model.FlowRecord) *string { return &r.DstIP }),
	model.ColSrcPort:    smallIntField(func(r *model.FlowRecord) *int { return &r.SrcPort }),
	model.ColDstPort:    smallIntField(func(r *model.FlowRecord) *int { return &r.DstPort }),
	model.ColSrcCountry: stringField(func(r *model.FlowRecord) *string { return &r.SrcCountry }),
	model.ColDstCountry: stringField(func(r *model.FlowRecord) *string { return &r.DstCountry }),
	model.ColProto:      stringField(func(r *model.FlowRecord) *string { return &r.Proto }),
	model.ColService:    stringField(func(r *model.FlowRecord) *string { return &r.Service }),
	model.ColState:      stringField(func(r *model.FlowRecord) *string { return &r.State }),
	model.ColStartTime:  timeField(func(r *model.FlowRecord) *time.Time { return &r.StartTime }),
	model.ColEndTime:    timeField(func(r *model.FlowRecord) *time.Time { return &r.EndTime }),
	model.ColDur:        floatField(func(r *model.FlowRecord) *float64 { return &r.Dur }),
	model.ColSpkts:      intField(func(r *model.FlowRecord) *int64 { return &r.Spkts }),
	model.ColDpkts:      intField(func(r *model.FlowRecord) *int64 { return &r.Dpkts }),
	model.ColSbytes:     intField(func(r *model.FlowRecord) *int64 { return &r.Sbytes }),
	model.ColDbytes:     intField(func(r *model.FlowRecord) *int64 { return &r.Dbytes }),
	model.ColRate:       floatField(func(r *model.FlowRecord) *float64 { return &r.Rate }),
	model.ColSttl:       smallIntField(func(r *model.FlowRecord) *int { return &r.Sttl }),
	model.ColDttl:       smallIntField(func(r *model.FlowRecord) *int { return &r.Dttl }),
	model.ColSload:      floatField(func(r *model.FlowRecord) *float64 { return &r.Sload }),
	model.ColDload:      floatField(func(r *model.FlowRecord) *float64 { return &r.Dload }),
	model.ColSloss:      intField(func(r *model.FlowRecord) *int64 { return &r.Sloss }),
	model.ColDloss:      intField(func(r *model.FlowRecord) *int64 { return &r.Dloss }),
	model.ColSinpkt:     floatField(func(r *model.FlowRecord) *float64 { return &r.Sinpkt }),
	model.ColDinpkt:     floatField(func(r *model.FlowRecord) *float64 { return &r.Dinpkt }),
	model.ColSjit:       floatField(func(r *model.FlowRecord) *float64 { return &r.Sjit }),
	model.ColDjit:       floatField(func(r *model.FlowRecord) *float64 { return &r.Djit }),
	model.ColSwin:       smallIntField(func(r *model.FlowRecord) *int { return &r.Swin }),
	model.ColDwin:       smallIntField(func(r *model.FlowRecord) *int { return &r.Dwin }),
	model.ColStcpb:      intField(func(r *model.FlowRecord) *int64 { return &r.Stcpb }),
	model.ColDtcpb:      intField(func(r *model.FlowRecord) *int64 { return &r.Dtcpb }),
	model.ColTcprtt:     floatField(func(r *model.FlowRecord) *float64 { return &r.Tcprtt }),
	model.ColSynack:     floatField(func(r *model.FlowRecord) *float64 { return &r.Synack }),
	model.ColAckdat:     floatField(func(r *model.FlowRecord) *float64 { return &r.Ackdat }),

	model.ColAnomaly: {
		get: func(r *model.FlowRecord) string {
			if r.Anomaly {
				return "1"
			}
			return "0"
		},
		set: func(r *model.FlowRecord, s string) error {
			v, err := parseFlag(s)
			if err != nil {
				return err
			}
			r.Anomaly = v
			return nil
		},
	},
	model.ColAnomalyType: {
		get: func(r *model.FlowRecord) string { return string(r.AnomalyType) },
		set: func(r *model.FlowRecord, s string) error {
			if IsMissing(s) {
				s = ""
			}
			r.AnomalyType = model.AnomalyType(s)
			return nil
		},
	},
}

// IsKnownColumn reports whether the codec can read the column
func IsKnownColumn(name string) bool {
	_, ok := fields[name]
	return ok
}

// missingTokens are the cell values read as missing, matching the NA markers
// of common dataframe tooling
var missingTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "#n/a": true, "<na>": true,
	"nan": true, "-nan": true, "null": true, "none": true,
}

// IsMissing reports whether a cell holds no value
func IsMissing(cell string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(cell))]
}

// parseInt accepts integer text and integral float text such as "12.0"
func parseInt(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	// float64(math.MaxInt64) rounds up to 2^63
	if f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return int64(f), nil
}

func parseFlag(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "1.0", "true":
		return true, nil
	case "0", "0.0", "false":
		return false, nil
	}
	return false, fmt.Errorf("%q is not a 0/1 flag", s)
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a timestamp", s)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
