package cmd

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/vizloom/vizloom-cli/internal/pipeline"
	"github.com/vizloom/vizloom-cli/internal/plan"
	"github.com/vizloom/vizloom-cli/internal/utils"
)

var (
	serveLLM       llmFlags
	serveAddr      string
	serveOutputDir string
)

// sampleCSV is the bundled dataset offered when no file is uploaded.
const sampleCSV = `age,income,city
34,52000,Lisbon
28,61000,Porto
45,48000,Lisbon
52,75000,Madrid
23,39000,Porto
41,58000,Barcelona
37,64000,Lisbon
29,43000,Madrid
48,71000,Seville
31,55000,Porto
`

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a browser front-end for uploading datasets and viewing reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir := serveOutputDir
		if outDir == "" {
			outDir = cfg.OutputDir
		}
		srv := &webServer{outDir: outDir, llm: serveLLM}
		mux := http.NewServeMux()
		mux.HandleFunc("/", srv.index)
		mux.HandleFunc("/run", srv.run)
		fmt.Printf("✓ Listening on http://%s\n", serveAddr)
		return http.ListenAndServe(serveAddr, mux)
	},
}

type webServer struct {
	outDir string
	llm    llmFlags
}

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html><head><title>VizLoom</title></head>
<body>
<h1>VizLoom</h1>
<p>Upload a CSV, TSV, or TXT file, or use the bundled sample dataset.</p>
<form action="/run" method="post" enctype="multipart/form-data">
  <p><input type="file" name="dataset"></p>
  <p><label><input type="checkbox" name="sample" value="1"> Use bundled sample dataset instead</label></p>
  <fieldset><legend>Chart kinds</legend>
    <label><input type="checkbox" name="kind" value="histogram" checked> histogram</label>
    <label><input type="checkbox" name="kind" value="scatter" checked> scatter</label>
    <label><input type="checkbox" name="kind" value="line" checked> line</label>
    <label><input type="checkbox" name="kind" value="bar" checked> bar</label>
  </fieldset>
  <p><button type="submit">Run pipeline</button></p>
</form>
</body></html>
`))

var resultTmpl = template.Must(template.New("result").Parse(`<!doctype html>
<html><head><title>VizLoom report</title></head>
<body>
<p><a href="/">&larr; back</a></p>
<pre>{{.Report}}</pre>
{{range .Charts}}<h3>{{.Title}}</h3><img src="data:image/png;base64,{{.B64}}" alt="{{.Title}}">{{end}}
</body></html>
`))

func (s *webServer) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	_ = indexTmpl.Execute(w, nil)
}

func (s *webServer) run(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "bad upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	session := uuid.NewString()
	sessionDir := filepath.Join(s.outDir, session)
	if err := utils.EnsureDir(sessionDir); err != nil {
		http.Error(w, "cannot create session dir: "+err.Error(), http.StatusInternalServerError)
		return
	}

	inputPath, err := s.stageInput(r, sessionDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var kinds []plan.Kind
	for _, k := range r.MultipartForm.Value["kind"] {
		if pk, ok := knownKind(k); ok {
			kinds = append(kinds, pk)
		}
	}

	orch := pipeline.New(buildPlanner(s.llm))
	res, err := orch.Run(r.Context(), pipeline.Options{
		InputPath:    inputPath,
		OutputDir:    sessionDir,
		PlainText:    true, // browsers get markdown, not ANSI
		AllowedKinds: kinds,
	})
	if err != nil {
		msg := err.Error()
		if g := res.Guidance(); g != "" {
			msg += "\n" + g
		}
		http.Error(w, msg, http.StatusUnprocessableEntity)
		return
	}

	type chartView struct {
		Title string
		B64   string
	}
	var charts []chartView
	for _, c := range res.Charts {
		b, err := os.ReadFile(c.Path)
		if err != nil {
			continue
		}
		title := c.Spec.Title
		if title == "" {
			title = c.Spec.String()
		}
		charts = append(charts, chartView{Title: title, B64: base64.StdEncoding.EncodeToString(b)})
	}
	_ = resultTmpl.Execute(w, map[string]any{"Report": res.Report, "Charts": charts})
}

// stageInput writes the uploaded file (or the bundled sample) into the
// session directory and returns its path.
func (s *webServer) stageInput(r *http.Request, sessionDir string) (string, error) {
	if r.FormValue("sample") == "1" {
		path := filepath.Join(sessionDir, "sample.csv")
		if err := utils.SafeWriteFile(path, []byte(sampleCSV)); err != nil {
			return "", fmt.Errorf("stage sample dataset: %w", err)
		}
		return path, nil
	}
	file, header, err := r.FormFile("dataset")
	if err != nil {
		return "", fmt.Errorf("no file uploaded (or tick the sample dataset box)")
	}
	defer file.Close()
	ext := filepath.Ext(header.Filename)
	if ext == "" {
		ext = ".csv"
	}
	path := filepath.Join(sessionDir, "upload"+ext)
	data, err := io.ReadAll(file)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return "", fmt.Errorf("stage upload: %w", err)
	}
	return path, nil
}

func knownKind(s string) (plan.Kind, bool) {
	for _, k := range plan.KnownKinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8080", "listen address")
	serveCmd.Flags().StringVarP(&serveOutputDir, "output-dir", "o", "", "directory for rendered charts (default from config)")
	registerLLMFlags(serveCmd, &serveLLM)
	rootCmd.AddCommand(serveCmd)
}
