package cliplugins

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"lanshare/internal/storage/peerhistory"
	"lanshare/internal/storage/sessionlog"
	utiljson "lanshare/internal/util/utilJson"
)

const timeLayout = "2006-01-02 15:04:05"

type livePeer struct {
	Address  string `json:"address"`
	NickName string `json:"nick_name"`
}

func sortedPeers(peers map[string]string) []livePeer {
	out := make([]livePeer, 0, len(peers))
	for addr, nick := range peers {
		out = append(out, livePeer{Address: addr, NickName: nick})
	}
	slices.SortFunc(out, func(a, b livePeer) int {
		return strings.Compare(a.Address, b.Address)
	})
	return out
}

func printLivePeers(w io.Writer, peers map[string]string, asJSON bool) error {
	sorted := sortedPeers(peers)
	if asJSON {
		return utiljson.Write(w, sorted)
	}
	if len(sorted) == 0 {
		_, err := fmt.Fprintln(w, "no peers connected")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNICK")
	for _, p := range sorted {
		fmt.Fprintf(tw, "%s\t%s\n", p.Address, p.NickName)
	}
	return tw.Flush()
}

func printRecords(w io.Writer, records []*peerhistory.PeerRecord, asJSON bool) error {
	if asJSON {
		return utiljson.Write(w, records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "peer history is empty")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNICK\tONLINE\tFIRST SEEN\tLAST SEEN\tPREVIOUS NICKS")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\t%s\n",
			r.Address,
			r.NickName,
			r.Online,
			r.FirstSeen.Local().Format(timeLayout),
			r.LastSeen.Local().Format(timeLayout),
			strings.Join(r.PreviousNickNames, ", "),
		)
	}
	return tw.Flush()
}

func printSessions(w io.Writer, sessions []sessionlog.Session, now time.Time, asJSON bool) error {
	if asJSON {
		return utiljson.Write(w, sessions)
	}
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "no sessions recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ADDRESS\tNICK\tCONNECTED\tDURATION\tRENAMES\tEND")
	for _, s := range sessions {
		end := string(s.EndReason)
		if s.Open() {
			end = "open"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			s.Address,
			s.NickName,
			s.ConnectedAt.Local().Format(timeLayout),
			s.Duration(now).Round(time.Second),
			s.NickChanges,
			end,
		)
	}
	return tw.Flush()
}
