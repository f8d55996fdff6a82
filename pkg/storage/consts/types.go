package consts

const (
	DefaultImagesDir = "images"
	DefaultLogsDir   = "logs"
	DefaultLabelsDir = "labels"

	DefaultImageExt    = ".jpg"
	DefaultVideoExt    = ".avi"
	DefaultLogSuffix   = "_log.csv"
	LabeledLogSuffix   = "_log_labeled.csv"
	DefaultLabelPrefix = "auto_labels_"
	ManifestPrefix     = "session_"
	ManifestExt        = ".json"

	DefaultFilePerm = 0660
	DefaultDirPerm  = 0750

	// Delimiter of every CSV the recorder writes. Joint tuples use commas
	// internally, so columns are separated by semicolons.
	CSVDelimiter = ';'

	// TimestampLayout is used for every timestamp column so frame logs and
	// label files can be joined on time.
	TimestampLayout = "2006-01-02 15:04:05.000000"
)
