package server

import (
	"html/template"
	"net/http"

	"github.com/dustin/go-humanize"
)

// listingTimeLayout mimics the en-US default locale rendering.
const listingTimeLayout = "1/2/2006, 3:04:05 PM"

var indexTmpl = template.Must(template.New("index").Parse(
	`<a href="https://getsharex.com" target="_blank">ShareX Server</a> is running.` +
		`{{if .Listing}} Visit <a href="{{.Listing}}">here</a> to see the file listing.{{end}}` +
		`{{if .Sxcu}}<br><a href="{{.Sxcu}}">Download the .sxcu configuration file</a>{{end}}` + "\n"))

var listingTmpl = template.Must(template.New("listing").Parse(`<ul>
{{- range .Files}}
<li><a href="{{$.Base}}{{.Name}}" target="_blank">{{.Name}}</a> - uploaded {{.Uploaded}} ({{.Size}})</li>
{{- end}}
</ul>
`))

type indexPage struct {
	Listing string
	Sxcu    string
}

type listingEntry struct {
	Name     string
	Uploaded string
	Size     string
}

type listingPage struct {
	Base  string
	Files []listingEntry
}

func (s *Server) handleRoot() http.HandlerFunc {
	page := indexPage{}
	if s.cfg.ListingEnabled() {
		page.Listing = s.cfg.BaseURL + s.cfg.FileListing
	}
	if s.cfg.EnableSxcu {
		page.Sxcu = s.cfg.BaseURL + "api/sxcu"
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := indexTmpl.Execute(w, page); err != nil {
			s.requestLogger(r).WithError(err).Error("render index")
		}
	}
}

// handleListing renders every stored file as a list item linking to it.
func (s *Server) handleListing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.debugf(r, "File listing requested by %s", clientIP(r))

		files, err := s.store.List(r.Context())
		if err != nil {
			s.requestLogger(r).WithError(err).Error("list files")
			http.Error(w, "Could not list files.", http.StatusInternalServerError)
			return
		}

		page := listingPage{Base: s.cfg.BaseURL, Files: make([]listingEntry, 0, len(files))}
		for _, f := range files {
			page.Files = append(page.Files, listingEntry{
				Name:     f.Name,
				Uploaded: f.ModTime.Local().Format(listingTimeLayout),
				Size:     humanize.Bytes(uint64(f.Size)),
			})
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := listingTmpl.Execute(w, page); err != nil {
			s.requestLogger(r).WithError(err).Error("render listing")
		}
	}
}
