package odx

import (
	"fmt"
	"os"
	"time"
)

// ExportConfig configures the streaming of propagated states to disk.
type ExportConfig struct {
	Filename     string
	AsCSV        bool
	Timestamp    bool
	CSVAppend    func(st State) string // Custom export (do not include leading comma)
	CSVAppendHdr func() string         // Header for the custom export
}

// IsUseless returns whether this config doesn't actually do anything.
func (c ExportConfig) IsUseless() bool {
	return !c.AsCSV
}

// createCSVFile returns a file which requires a defer close statement!
func createCSVFile(conf ExportConfig, firstDate Date) *os.File {
	cfg := odxConfig()
	filename := fmt.Sprintf("%s/states-%s.csv", cfg.outputDir, conf.Filename)
	if conf.Timestamp {
		t := time.Now()
		filename = fmt.Sprintf("%s/states-%s-%d-%02d-%02dT%02d.%02d.%02d.csv", cfg.outputDir, conf.Filename,
			t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
	}
	f, err := os.Create(filename)
	if err != nil {
		panic(err)
	}
	// Header
	f.WriteString(fmt.Sprintf(`# Creation date (UTC): %s
# Records are <jd>, a, ex, ey, hx, hy, Lv, mass. Distances in m, angles in radians.
#   Simulation time start (UTC): %s
jd,a,ex,ey,hx,hy,lv,mass`, time.Now().UTC(), firstDate.Time()))
	if conf.CSVAppendHdr != nil {
		f.WriteString("," + conf.CSVAppendHdr())
	}
	return f
}

// StreamStates streams the states of the channel to the configured
// files, one record per state. The channel being closed marks the end
// of the propagation.
func StreamStates(conf ExportConfig, stateChan <-chan State) {
	if conf.IsUseless() {
		for range stateChan {
		}
		return
	}
	var f *os.File
	var started bool
	var last State
	for state := range stateChan {
		if !started {
			started = true
			f = createCSVFile(conf, state.Date)
			defer f.Close()
		}
		o := state.Orbit
		record := fmt.Sprintf("\n%.9f,%.6f,%.9f,%.9f,%.9f,%.9f,%.9f,%.6f",
			state.Date.JD(), o.A(), o.Ex(), o.Ey(), o.Hx(), o.Hy(), o.Lv(), state.Mass)
		if conf.CSVAppend != nil {
			record += "," + conf.CSVAppend(state)
		}
		if _, err := f.WriteString(record); err != nil {
			panic(err)
		}
		last = state
	}
	if started {
		f.WriteString(fmt.Sprintf("\n# Simulation time end (UTC): %s\n", last.Date.Time()))
	}
}
