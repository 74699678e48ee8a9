package commands

import (
	"time"

	"github.com/spf13/cobra"

	"taskrelay/internal/config"
	"taskrelay/internal/worker"
	"taskrelay/internal/youtube"
)

// WorkerCmd represents the worker command
var WorkerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Dispatch Todoist tasks to the agent",
	Long: "Poll a Todoist project and hand each open task to the Claude CLI. " +
		"Results are posted as comments and retry state is kept in task labels.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorkerCmd(cmd)
	},
}

func init() {
	f := WorkerCmd.Flags()
	f.String("project", "", "Todoist project name to watch")
	f.Bool("watch", false, "Poll continuously")
	f.Duration("interval", worker.DefaultInterval, "Poll interval in --watch mode")
	f.String("schedule", "", "Cron expression for polling instead of --interval")
	f.Bool("verbose", false, "Stream agent progress to the terminal")
	f.Duration("timeout", 300*time.Second, "Per-task timeout")
	f.Int("max-retries", worker.DefaultMaxRetries, "Give up after N failures")
	f.String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
	f.String("config", "", "Config file (default "+config.DefaultFile+")")
}

// AirtableCmd represents the airtable parent command
var AirtableCmd = &cobra.Command{
	Use:   "airtable",
	Short: "Airtable base, table and record operations",
	Long:  "Read and write Airtable data. Results are JSON on stdout; errors are JSON on stderr.",
}

var airtableBaseCmd = &cobra.Command{
	Use:   "base",
	Short: "Base operations",
}

var airtableBaseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bases",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunBaseList(cmd)
	},
}

var airtableTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Table operations",
}

var airtableTableListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunTableList(cmd)
	},
}

var airtableTableCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		schema, _ := cmd.Flags().GetString("schema")
		return RunTableCreate(cmd, args[0], schema)
	},
}

var airtableFieldCmd = &cobra.Command{
	Use:   "field",
	Short: "Field operations",
}

var airtableFieldAddCmd = &cobra.Command{
	Use:   "add TABLE",
	Short: "Add field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		typ, _ := cmd.Flags().GetString("type")
		options, _ := cmd.Flags().GetString("options")
		return RunFieldAdd(cmd, args[0], name, typ, options)
	},
}

var airtableRecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record operations",
}

var airtableRecordListCmd = &cobra.Command{
	Use:   "list TABLE",
	Short: "List records",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		formula, _ := cmd.Flags().GetString("formula")
		view, _ := cmd.Flags().GetString("view")
		maxRecords, _ := cmd.Flags().GetInt("max")
		sorts, _ := cmd.Flags().GetStringArray("sort")
		return RunRecordList(cmd, args[0], formula, view, maxRecords, sorts)
	},
}

var airtableRecordGetCmd = &cobra.Command{
	Use:   "get TABLE RECORD_ID",
	Short: "Get record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunRecordGet(cmd, args[0], args[1])
	},
}

var airtableRecordCreateCmd = &cobra.Command{
	Use:   "create TABLE FIELDS_JSON",
	Short: "Create record(s)",
	Long:  "Create one record from a JSON object, or several from a JSON array of objects.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunRecordCreate(cmd, args[0], args[1])
	},
}

var airtableRecordUpdateCmd = &cobra.Command{
	Use:   "update TABLE RECORD_ID FIELDS_JSON",
	Short: "Update record",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunRecordUpdate(cmd, args[0], args[1], args[2])
	},
}

var airtableRecordDeleteCmd = &cobra.Command{
	Use:   "delete TABLE RECORD_ID...",
	Short: "Delete record(s)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunRecordDelete(cmd, args[0], args[1:])
	},
}

var airtableRecordFindCmd = &cobra.Command{
	Use:   "find TABLE FIELD VALUE",
	Short: "Find record by field value",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunRecordFind(cmd, args[0], args[1], args[2])
	},
}

func init() {
	AirtableCmd.PersistentFlags().String("base", "", "Base ID (overrides AIRTABLE_BASE_ID)")

	airtableTableCreateCmd.Flags().String("schema", "", "JSON field schema")
	_ = airtableTableCreateCmd.MarkFlagRequired("schema")

	airtableFieldAddCmd.Flags().String("name", "", "Field name")
	airtableFieldAddCmd.Flags().String("type", "", "Field type")
	airtableFieldAddCmd.Flags().String("options", "", "Field options JSON")
	_ = airtableFieldAddCmd.MarkFlagRequired("name")
	_ = airtableFieldAddCmd.MarkFlagRequired("type")

	airtableRecordListCmd.Flags().String("formula", "", "Filter formula")
	airtableRecordListCmd.Flags().String("view", "", "View name")
	airtableRecordListCmd.Flags().Int("max", 0, "Max records")
	airtableRecordListCmd.Flags().StringArray("sort", nil, "Sort as FIELD:DIR (repeatable)")

	airtableBaseCmd.AddCommand(airtableBaseListCmd)
	airtableTableCmd.AddCommand(airtableTableListCmd, airtableTableCreateCmd)
	airtableFieldCmd.AddCommand(airtableFieldAddCmd)
	airtableRecordCmd.AddCommand(
		airtableRecordListCmd,
		airtableRecordGetCmd,
		airtableRecordCreateCmd,
		airtableRecordUpdateCmd,
		airtableRecordDeleteCmd,
		airtableRecordFindCmd,
	)
	AirtableCmd.AddCommand(airtableBaseCmd, airtableTableCmd, airtableFieldCmd, airtableRecordCmd)
}

// YouTubeCmd represents the youtube parent command
var YouTubeCmd = &cobra.Command{
	Use:     "youtube",
	Aliases: []string{"yt"},
	Short:   "YouTube research, analytics and upload commands",
	Long: "Channel outlier analysis, video search and transcripts via the YouTube Data API and Supadata.\n" +
		"Analytics and upload commands act on your own channel and authorize with OAuth (YOUTUBE_CLIENT_SECRETS).",
}

var youtubeChannelVideosCmd = &cobra.Command{
	Use:   "channel-videos CHANNEL",
	Short: "Recent uploads of a channel with outlier scores",
	Long:  "CHANNEL may be an @handle, a channel URL or a UC... channel ID.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		maxResults, _ := cmd.Flags().GetInt("max")
		return RunChannelVideos(cmd, args[0], days, maxResults)
	},
}

var youtubeSearchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search YouTube videos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxResults, _ := cmd.Flags().GetInt("max")
		days, _ := cmd.Flags().GetInt("days")
		order, _ := cmd.Flags().GetString("order")
		return RunSearch(cmd, args[0], maxResults, days, order)
	},
}

var youtubeTranscriptCmd = &cobra.Command{
	Use:   "transcript VIDEO",
	Short: "Fetch a video transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxChars, _ := cmd.Flags().GetInt("max-chars")
		return RunTranscript(cmd, args[0], maxChars)
	},
}

func daysCmd(use, short string, run func(cmd *cobra.Command, days int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			return run(cmd, days)
		},
	}
}

func rankedCmd(use, short string, run func(cmd *cobra.Command, days, maxResults int) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")
			maxResults, _ := cmd.Flags().GetInt("max")
			return run(cmd, days, maxResults)
		},
	}
}

var (
	youtubeChannelStatsCmd   = daysCmd("channel-stats", "Daily views, watch time and subscribers of your channel", RunChannelStats)
	youtubeTopVideosCmd      = rankedCmd("top-videos", "Your most viewed videos", RunTopVideos)
	youtubeTrafficSourcesCmd = daysCmd("traffic-sources", "Where your views come from", RunTrafficSources)
	youtubeSearchTermsCmd    = rankedCmd("search-terms", "YouTube searches that found your videos", RunSearchTerms)
	youtubeDemographicsCmd   = daysCmd("demographics", "Viewer age and gender", RunDemographics)
	youtubeGeographyCmd      = rankedCmd("geography", "Views by country", RunGeography)
	youtubeRevenueCmd        = daysCmd("revenue", "Daily revenue of a monetized channel", RunRevenue)
)

var youtubeVideoDailyCmd = &cobra.Command{
	Use:   "video-daily VIDEO_ID",
	Short: "Daily metrics of one of your videos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		return RunVideoDaily(cmd, args[0], days)
	},
}

var youtubeRetentionCmd = &cobra.Command{
	Use:   "retention VIDEO_ID",
	Short: "Audience retention curve of one of your videos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunRetention(cmd, args[0])
	},
}

var youtubeUploadCmd = &cobra.Command{
	Use:   "upload VIDEO",
	Short: "Upload a video to your channel",
	Long:  "Values in --metadata (YAML, or Markdown with YAML front matter) take precedence over flags, except --thumbnail.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var f UploadFlags
		f.Metadata, _ = cmd.Flags().GetString("metadata")
		f.Title, _ = cmd.Flags().GetString("title")
		f.Description, _ = cmd.Flags().GetString("description")
		f.Tags, _ = cmd.Flags().GetString("tags")
		f.Category, _ = cmd.Flags().GetString("category")
		f.Privacy, _ = cmd.Flags().GetString("privacy")
		f.Thumbnail, _ = cmd.Flags().GetString("thumbnail")
		return RunUpload(cmd, args[0], f)
	},
}

var youtubeSetThumbnailCmd = &cobra.Command{
	Use:   "set-thumbnail VIDEO_ID IMAGE",
	Short: "Set a custom thumbnail",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunSetThumbnail(cmd, args[0], args[1])
	},
}

var youtubeUpdateCmd = &cobra.Command{
	Use:   "update VIDEO_ID",
	Short: "Update a video's title, description or tags",
	Long:  "Flags take precedence over --metadata. Fields set by neither are left unchanged.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var f UpdateFlags
		f.Metadata, _ = cmd.Flags().GetString("metadata")
		f.Title, _ = cmd.Flags().GetString("title")
		f.Description, _ = cmd.Flags().GetString("description")
		f.Tags, _ = cmd.Flags().GetString("tags")
		return RunUpdate(cmd, args[0], f)
	},
}

func init() {
	YouTubeCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	youtubeChannelVideosCmd.Flags().Int("days", 30, "Days to look back")
	youtubeChannelVideosCmd.Flags().Int("max", 50, "Max videos to fetch")

	youtubeSearchCmd.Flags().Int("max", 25, "Max results")
	youtubeSearchCmd.Flags().Int("days", 0, "Only videos published in the last N days")
	youtubeSearchCmd.Flags().String("order", "relevance", "Sort order: relevance, view_count or date")

	youtubeTranscriptCmd.Flags().Int("max-chars", 50000, "Truncate the transcript after N characters")

	for _, c := range []*cobra.Command{
		youtubeChannelStatsCmd, youtubeTopVideosCmd, youtubeVideoDailyCmd, youtubeTrafficSourcesCmd,
		youtubeSearchTermsCmd, youtubeGeographyCmd, youtubeRevenueCmd,
	} {
		c.Flags().Int("days", 30, "Days to look back")
	}
	youtubeDemographicsCmd.Flags().Int("days", 90, "Days to look back")
	youtubeTopVideosCmd.Flags().Int("max", 20, "Max videos")
	youtubeSearchTermsCmd.Flags().Int("max", 25, "Max terms")
	youtubeGeographyCmd.Flags().Int("max", 25, "Max countries")

	youtubeUploadCmd.Flags().String("metadata", "", "YAML or Markdown metadata file")
	youtubeUploadCmd.Flags().String("title", "", "Video title")
	youtubeUploadCmd.Flags().String("description", "", "Video description")
	youtubeUploadCmd.Flags().String("tags", "", "Comma separated tags")
	youtubeUploadCmd.Flags().String("category", youtube.DefaultCategory, "Category ID")
	youtubeUploadCmd.Flags().String("privacy", youtube.DefaultPrivacy, "private, unlisted or public")
	youtubeUploadCmd.Flags().String("thumbnail", "", "Thumbnail image (PNG or JPEG)")

	youtubeUpdateCmd.Flags().String("metadata", "", "YAML or Markdown metadata file")
	youtubeUpdateCmd.Flags().String("title", "", "New title")
	youtubeUpdateCmd.Flags().String("description", "", "New description")
	youtubeUpdateCmd.Flags().String("tags", "", "New comma separated tags")

	YouTubeCmd.AddCommand(
		youtubeChannelVideosCmd,
		youtubeSearchCmd,
		youtubeTranscriptCmd,
		youtubeChannelStatsCmd,
		youtubeTopVideosCmd,
		youtubeVideoDailyCmd,
		youtubeTrafficSourcesCmd,
		youtubeSearchTermsCmd,
		youtubeDemographicsCmd,
		youtubeRetentionCmd,
		youtubeGeographyCmd,
		youtubeRevenueCmd,
		youtubeUploadCmd,
		youtubeSetThumbnailCmd,
		youtubeUpdateCmd,
	)
}

// DoctorCmd represents the doctor command
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the agent CLI, credentials and Todoist access",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return RunDoctor(cmd)
	},
}

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		RunVersion(cmd.OutOrStdout())
	},
}
