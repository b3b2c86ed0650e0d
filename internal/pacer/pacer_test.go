package pacer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify_KnownShapes(t *testing.T) {
	t.Parallel()

	cases := map[string]PageKind{
		"/cgi-bin/DktRpt.pl?531591":                 KindDocketQuery,
		"/cgi-bin/DktRpt.pl?101092135737069-L_1_0-1": KindDocketDisplay,
		"/cgi-bin/HistDocQry.pl?101092135737069-L_1_0-1": KindHistoryDocketDisplay,
		"/doc1/034031424909": KindSingleDocument,
		"/foobar/baz":        KindUnknown,
		"":                   KindUnknown,
		"/cgi-bin/show_doc.pl?caseid=260973&claim_id=15342915": KindUnknown,
	}
	for path, want := range cases {
		require.Equal(t, want, Classify(path), "path %q", path)
	}
}

func TestIsDocketQueryPath(t *testing.T) {
	t.Parallel()

	require.True(t, IsDocketQueryPath("/cgi-bin/DktRpt.pl?531591"))
	require.False(t, IsDocketQueryPath("/cgi-bin/DktRpt.pl?101092135737069-L_1_0-1"))
	require.False(t, IsDocketQueryPath("/cgi-bin/DktRpt.pl"))
	require.False(t, IsDocketQueryPath("/doc1/531591"))
}

func TestCourtFromHost(t *testing.T) {
	t.Parallel()

	require.Equal(t, "canb", CourtFromHost("ecf.canb.uscourts.gov"))
	require.Equal(t, "pamd", CourtFromHost("ECF.PAMD.USCOURTS.GOV"))
	require.Equal(t, "", CourtFromHost("something.uscourts.gov"))
	require.Equal(t, "", CourtFromHost("example.com"))
}

func TestCaseIDFromQuery(t *testing.T) {
	t.Parallel()

	require.Equal(t, "531591", CaseIDFromQuery("/cgi-bin/DktRpt.pl?531591"))
	require.Equal(t, "", CaseIDFromQuery("/cgi-bin/DktRpt.pl?101092135737069-L_1_0-1"))
	require.Equal(t, "", CaseIDFromQuery("/doc1/034031424909"))
}

func TestDocumentIDFromURL(t *testing.T) {
	t.Parallel()

	require.Equal(t, "034031424909", DocumentIDFromURL("https://ecf.canb.uscourts.gov/doc1/034031424909"))
	require.Equal(t, "", DocumentIDFromURL("https://ecf.canb.uscourts.gov/notacase/034031424909"))
	require.Equal(t, "", DocumentIDFromURL("https://ecf.pamb.uscourts.gov/cgi-bin/show_doc.pl?caseid=260973&claim_id=15342915&claim_num=1-1&magic_num=MAGIC"))
	require.Equal(t, "", DocumentIDFromURL("https://ecf.pamb.uscourts.gov/cgi-bin/show_doc.pl?caseid=171908&de_seq_num=981&dm_id=15184563&doc_num=287"))
}

func TestIsClaimsRegisterLink(t *testing.T) {
	t.Parallel()

	require.True(t, IsClaimsRegisterLink("https://ecf.pamb.uscourts.gov/cgi-bin/show_doc.pl?caseid=260973&claim_id=15342915&claim_num=1-1"))
	require.False(t, IsClaimsRegisterLink("https://ecf.pamb.uscourts.gov/cgi-bin/show_doc.pl?caseid=171908&de_seq_num=981"))
	require.False(t, IsClaimsRegisterLink("https://ecf.canb.uscourts.gov/doc1/034031424909"))
}

func TestFormatAutofillDate(t *testing.T) {
	t.Parallel()

	got, ok := FormatAutofillDate("2015-04-20")
	require.True(t, ok)
	require.Equal(t, "04/20/2015", got)

	_, ok = FormatAutofillDate("")
	require.False(t, ok)
	_, ok = FormatAutofillDate("04/20/2015")
	require.False(t, ok)
}

func TestParseGoDLS(t *testing.T) {
	t.Parallel()

	args, ok := ParseGoDLS("goDLS('/doc1/034031424909','531591','','','','','')")
	require.True(t, ok)
	require.Equal(t, "/doc1/034031424909", args.Hyperlink)
	require.Equal(t, "531591", args.DeCaseID)

	args, ok = ParseGoDLS("goDLS('/doc1/1','1234','2','','1','','','');return false;")
	require.True(t, ok)
	require.Equal(t, "1234", args.DeCaseID)

	_, ok = ParseGoDLS("goDLS()")
	require.False(t, ok)
	_, ok = ParseGoDLS("goDLS('/doc1/1','1234')")
	require.False(t, ok)
	_, ok = ParseGoDLS("alert('goDLS')")
	require.False(t, ok)
	_, ok = ParseGoDLS("")
	require.False(t, ok)
}
