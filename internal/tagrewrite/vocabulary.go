package tagrewrite

// Path-bearing tags. Their content is required.
const (
	TagPPSDiskPath      = "ppsDiskPathF"
	TagNEDiskPath       = "neDiskPathF"
	TagPPSSFTPPath      = "ppsSFTPPathF"
	TagNESFTPClientPath = "neSFTPClientPathF"
	TagMatcherPath      = "matcherPathF"
	TagSCPath           = "scPathF"
)

// SFTP tags for the PPS (distributer) and NE (collector) sides.
const (
	TagPPSSFTPHost          = "ppsSFTPHostF"
	TagNESFTPClientHost     = "neSFTPClientHostF"
	TagPPSSFTPUser          = "ppsSFTPUserF"
	TagNESFTPClientUser     = "neSFTPClientUserF"
	TagPPSSFTPPassword      = "ppsSFTPPasswordF"
	TagNESFTPClientPassword = "neSFTPClientPasswordF"
	TagPPSSFTPPassFlag      = "ppsSFTPPassFlagF"
	TagNESFTPClientPassFlag = "neSFTPClientPassFlagF"
)

const (
	TagDefaultStoppedState = "defaultStoppedState"

	// TagName is read-only; its first value labels log and script files.
	TagName = "name"
)

// Tag groups in the order they are applied to a line.
var (
	PathTags = []string{
		TagPPSDiskPath, TagNEDiskPath, TagPPSSFTPPath,
		TagNESFTPClientPath, TagMatcherPath, TagSCPath,
	}
	HostTags           = []string{TagPPSSFTPHost, TagNESFTPClientHost}
	UserTags           = []string{TagPPSSFTPUser, TagNESFTPClientUser}
	PasswordTags       = []string{TagPPSSFTPPassword, TagNESFTPClientPassword}
	PassFlagTags       = []string{TagPPSSFTPPassFlag, TagNESFTPClientPassFlag}
	DefaultStoppedTags = []string{TagDefaultStoppedState}
)
