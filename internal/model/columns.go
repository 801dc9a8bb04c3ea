package model

// Column names of the flow record schema, in serialization order.
const (
	ColID          = "id"
	ColSrcIP       = "src_ip"
	ColDstIP       = "dst_ip"
	ColSrcPort     = "src_port"
	ColDstPort     = "dst_port"
	ColSrcCountry  = "src_country"
	ColDstCountry  = "dst_country"
	ColProto       = "proto"
	ColService     = "service"
	ColState       = "state"
	ColStartTime   = "start_time"
	ColEndTime     = "end_time"
	ColDur         = "dur"
	ColSpkts       = "spkts"
	ColDpkts       = "dpkts"
	ColSbytes      = "sbytes"
	ColDbytes      = "dbytes"
	ColRate        = "rate"
	ColSttl        = "sttl"
	ColDttl        = "dttl"
	ColSload       = "sload"
	ColDload       = "dload"
	ColSloss       = "sloss"
	ColDloss       = "dloss"
	ColSinpkt      = "sinpkt"
	ColDinpkt      = "dinpkt"
	ColSjit        = "sjit"
	ColDjit        = "djit"
	ColSwin        = "swin"
	ColDwin        = "dwin"
	ColStcpb       = "stcpb"
	ColDtcpb       = "dtcpb"
	ColTcprtt      = "tcprtt"
	ColSynack      = "synack"
	ColAckdat      = "ackdat"
	ColAnomaly     = "anomaly"
	ColAnomalyType = "anomaly_type"
)

// Columns is the flow record schema without the label columns
var Columns = []string{
	ColID, ColSrcIP, ColDstIP, ColSrcPort, ColDstPort, ColSrcCountry, ColDstCountry,
	ColProto, ColService, ColState,
	ColStartTime, ColEndTime, ColDur,
	ColSpkts, ColDpkts, ColSbytes, ColDbytes, ColRate,
	ColSttl, ColDttl, ColSload, ColDload, ColSloss, ColDloss, ColSinpkt, ColDinpkt, ColSjit, ColDjit,
	ColSwin, ColDwin, ColStcpb, ColDtcpb, ColTcprtt, ColSynack, ColAckdat,
}

// LabelColumns are written only once the rule engine has evaluated a table
var LabelColumns = []string{ColAnomaly, ColAnomalyType}

// NumericColumns are the columns offered for distribution and correlation analysis
var NumericColumns = []string{
	ColDur, ColSpkts, ColDpkts, ColSbytes, ColDbytes, ColRate,
	ColSttl, ColDttl, ColSload, ColDload, ColSloss, ColDloss,
	ColSinpkt, ColDinpkt, ColSjit, ColDjit, ColTcprtt, ColSynack, ColAckdat,
}

// RoundedColumns hold floats rounded to 6 decimals before serialization
var RoundedColumns = []string{
	ColDur, ColRate, ColSload, ColDload, ColSinpkt, ColDinpkt, ColSjit, ColDjit, ColTcprtt, ColSynack, ColAckdat,
}

// NumericValue returns the value of a numeric column as float64.
func (r *FlowRecord) NumericValue(column string) (float64, bool) {
	switch column {
	case ColID:
		return float64(r.ID), true
	case ColSrcPort:
		return float64(r.SrcPort), true
	case ColDstPort:
		return float64(r.DstPort), true
	case ColDur:
		return r.Dur, true
	case ColSpkts:
		return float64(r.Spkts), true
	case ColDpkts:
		return float64(r.Dpkts), true
	case ColSbytes:
		return float64(r.Sbytes), true
	case ColDbytes:
		return float64(r.Dbytes), true
	case ColRate:
		return r.Rate, true
	case ColSttl:
		return float64(r.Sttl), true
	case ColDttl:
		return float64(r.Dttl), true
	case ColSload:
		return r.Sload, true
	case ColDload:
		return r.Dload, true
	case ColSloss:
		return float64(r.Sloss), true
	case ColDloss:
		return float64(r.Dloss), true
	case ColSinpkt:
		return r.Sinpkt, true
	case ColDinpkt:
		return r.Dinpkt, true
	case ColSjit:
		return r.Sjit, true
	case ColDjit:
		return r.Djit, true
	case ColSwin:
		return float64(r.Swin), true
	case ColDwin:
		return float64(r.Dwin), true
	case ColStcpb:
		return float64(r.Stcpb), true
	case ColDtcpb:
		return float64(r.Dtcpb), true
	case ColTcprtt:
		return r.Tcprtt, true
	case ColSynack:
		return r.Synack, true
	case ColAckdat:
		return r.Ackdat, true
	}
	return 0, false
}

// IsNumericColumn reports whether NumericValue understands the column
func IsNumericColumn(column string) bool {
	_, ok := (&FlowRecord{}).NumericValue(column)
	return ok
}
