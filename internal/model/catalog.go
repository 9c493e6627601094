package model

// AllDocuments is the selection value that searches every processed document.
const AllDocuments = "All Documents"

const (
	DefaultEmbeddingModel  = "all-MiniLM-L6-v2"
	DefaultGenerationModel = "gemini-2.5-flash"
)

type EmbeddingOption struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

var EmbeddingModelOptions = []EmbeddingOption{
	{Name: "all-MiniLM-L6-v2", ID: "sentence-transformers/all-MiniLM-L6-v2"},
	{Name: "all-mpnet-base-v2", ID: "sentence-transformers/all-mpnet-base-v2"},
	{Name: "multi-qa-MiniLM-L6-cos-v1", ID: "sentence-transformers/multi-qa-MiniLM-L6-cos-v1"},
	{Name: "paraphrase-MiniLM-L6-v2", ID: "sentence-transformers/paraphrase-MiniLM-L6-v2"},
}

var GenerationModelOptions = []string{
	"gemini-2.5-flash",
	"gemini-2.5-pro",
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

type FormatInfo struct {
	Ext   string `json:"ext"`
	Label string `json:"label"`
}

var SupportedFormats = []FormatInfo{
	{Ext: "pdf", Label: "📄 PDF Documents"},
	{Ext: "txt", Label: "📝 Text Files"},
	{Ext: "docx", Label: "📋 Word Documents"},
	{Ext: "html", Label: "🌐 HTML Files"},
	{Ext: "htm", Label: "🌐 HTML Files"},
	{Ext: "md", Label: "📓 Markdown Files"},
	{Ext: "csv", Label: "📊 CSV Files"},
}

// EmbeddingModelID resolves an option name to the model id sent to the embeddings API.
func EmbeddingModelID(name string) (string, bool) {
	for _, opt := range EmbeddingModelOptions {
		if opt.Name == name {
			return opt.ID, true
		}
	}
	return "", false
}

func IsGenerationModel(name string) bool {
	for _, m := range GenerationModelOptions {
		if m == name {
			return true
		}
	}
	return false
}

func IsSupportedFormat(ext string) bool {
	_, ok := FormatLabel(ext)
	return ok
}

func FormatLabel(ext string) (string, bool) {
	for _, f := range SupportedFormats {
		if f.Ext == ext {
			return f.Label, true
		}
	}
	return "", false
}
