package transaction

import (
	"github.com/mccutchen/httpwatch/internal/flow"
	"github.com/mccutchen/httpwatch/internal/httpwire"
	"github.com/mccutchen/httpwatch/memview"
)

// Drain frames every complete request/response pair out of a finished
// flow's two directional buffers. Parsing runs only once, after both
// FINs have been observed, as a single pass over the whole accumulated
// buffer rather than incrementally per packet.
//
// Drain stops at the first request or response it cannot parse. A
// request that parses but whose matching response never completes (the
// connection was torn down mid-response) is dropped along with everything
// after it; transactions already collected are still returned.
func Drain(f *flow.Flow) []Transaction {
	reqView := f.RequestBytes()
	respView := f.ResponseBytes()

	var reqOffset, respOffset int64
	var txns []Transaction

	for {
		reqRemaining := subViewFrom(reqView, reqOffset)
		req, reqConsumed, err := httpwire.ParseRequest(reqRemaining)
		if err != nil {
			break
		}

		respRemaining := subViewFrom(respView, respOffset)
		resp, respConsumed, err := httpwire.ParseResponse(respRemaining)
		if err != nil {
			break
		}

		txns = append(txns, Transaction{
			FlowID:      f.ID,
			Timestamp:   f.FirstSeen,
			Source:      f.Source,
			Destination: f.Destination,
			Request:     req,
			Response:    resp,
		})

		reqOffset += reqConsumed
		respOffset += respConsumed
	}

	return txns
}

func subViewFrom(view memview.MemView, offset int64) memview.MemView {
	if offset >= view.Len() {
		return memview.MemView{}
	}
	return view.SubView(offset, view.Len())
}
