package flp

// Project is a beneficiary project that wallets can delegate to.
type Project struct {
	Name   string `json:"name"`
	Ticker string `json:"ticker"`
	PID    string `json:"pid"`
}

// Known project process ids.
const (
	PIProjectID     = "4hXj_E-5fAKmo4E8KjgQvuDJKAFk9P2grhycVmISDLs"
	APUSProjectID   = "jHZBsy0SalZ6I5BmYKRUt0AtLsn-FCFhqf_n6AgwGlc"
	LOADProjectID   = "Qz3n2P-EiWNoWsvk7gKLtrV9ChvSXQ5HJPgPklWEgQ0"
	BOTGProjectID   = "UcBPqkaVI7W4I_YMznrt2JUoyc_7TScCdZWOOSBvMSU"
	AOSProjectID    = "t7_efxAUDftIEl9QfBi0KYSz8uHpMS81xfD3eqd89rQ"
	WNDRProjectID   = "11T2aA8M-ZcoEnDqG37Kf2dzEGY2r4_CyYeiN_1VTvU"
	ACTIONProjectID = "NXZjrPKh-fQx8BUCG_OXBUtB4Ix8Xf0gbUtREFoWQ2Q"
	SMONEYProjectID = "oIuISObCStjTFMnV3CrrERRb9KTDGN4507-ARysYzLE"
)

// FallbackProjectID receives 100% of a wallet that never declared a preference.
const FallbackProjectID = PIProjectID

// Projects lists the known projects.
var Projects = []Project{
	{Name: "Permaweb Index", Ticker: "PI", PID: PIProjectID},
	{Name: "Load Network", Ticker: "LOAD", PID: LOADProjectID},
	{Name: "Apus Network", Ticker: "APUS", PID: APUSProjectID},
	{Name: "Botega Token", Ticker: "BOTG", PID: BOTGProjectID},
	{Name: "AO Strategy", Ticker: "AOS", PID: AOSProjectID},
	{Name: "Wander", Ticker: "WNDR", PID: WNDRProjectID},
	{Name: "Action", Ticker: "ACTION", PID: ACTIONProjectID},
	{Name: "Space Money", Ticker: "SMONEY", PID: SMONEYProjectID},
}

// LookupProject finds a project by process id or ticker.
func LookupProject(idOrTicker string) (Project, bool) {
	for _, p := range Projects {
		if p.PID == idOrTicker || p.Ticker == idOrTicker {
			return p, true
		}
	}
	return Project{}, false
}

// DefaultAuthority is the trusted owner of relayed profiles and oracle snapshots.
const DefaultAuthority = "fcoN_xJeisVsPXA-trzVAuIiqO3ydLQxM-L4XbrQKzY"
