package mdns

import (
	"encoding/binary"
	"time"

	"github.com/miekg/dns"
)

const (
	headerLen       = 12
	rrHeaderFixed   = 10
	questionFixed   = 4
	flagResponse    = 0x8000
	countQuestions  = 4
	countAnswers    = 6
	countAuthority  = 8
	countAdditional = 10
)

// parsedResponse is the salvageable content of one received packet
type parsedResponse struct {
	records   []*Record
	malformed int
}

// parseResponse reads the answer and additional sections of packet. A
// packet that is not a response, or whose header or questions cannot be
// read, is rejected. A record with unreadable rdata is skipped; a record
// whose header or length runs past the packet ends parsing, keeping what
// was read so far. Authority records, OPT records and records of classes
// other than IN are dropped.
func parseResponse(packet []byte, now time.Time) (parsedResponse, bool) {
	var resp parsedResponse

	if len(packet) < headerLen {
		return resp, false
	}
	if binary.BigEndian.Uint16(packet[2:])&flagResponse == 0 {
		return resp, false
	}

	qdcount := int(binary.BigEndian.Uint16(packet[countQuestions:]))
	ancount := int(binary.BigEndian.Uint16(packet[countAnswers:]))
	nscount := int(binary.BigEndian.Uint16(packet[countAuthority:]))
	arcount := int(binary.BigEndian.Uint16(packet[countAdditional:]))

	off := headerLen
	for i := 0; i < qdcount; i++ {
		_, next, err := dns.UnpackDomainName(packet, off)
		if err != nil || next+questionFixed > len(packet) {
			return resp, false
		}
		off = next + questionFixed
	}

	total := ancount + nscount + arcount
	for i := 0; i < total; i++ {
		name, next, err := dns.UnpackDomainName(packet, off)
		if err != nil || next+rrHeaderFixed > len(packet) {
			resp.malformed++
			break
		}

		hdr := dns.RR_Header{
			Name:     name,
			Rrtype:   binary.BigEndian.Uint16(packet[next:]),
			Class:    binary.BigEndian.Uint16(packet[next+2:]) & classMask,
			Ttl:      binary.BigEndian.Uint32(packet[next+4:]),
			Rdlength: binary.BigEndian.Uint16(packet[next+8:]),
		}
		rdata := next + rrHeaderFixed
		end := rdata + int(hdr.Rdlength)
		if end > len(packet) {
			resp.malformed++
			break
		}
		off = end

		if i >= ancount && i < ancount+nscount {
			continue
		}
		if hdr.Rrtype == dns.TypeOPT || hdr.Class != dns.ClassINET {
			continue
		}

		if hdr.Rdlength == 0 {
			resp.malformed++
			continue
		}

		rr, _, err := dns.UnpackRRWithHeader(hdr, packet, rdata)
		if err != nil || rr == nil {
			resp.malformed++
			continue
		}
		resp.records = append(resp.records, &Record{RR: rr, Created: now})
	}

	return resp, true
}
