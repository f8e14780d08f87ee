package population

import (
	"compress/gzip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

type xmlPerson struct {
	ID    string    `xml:"id,attr"`
	Plans []xmlPlan `xml:"plan"`
}

type xmlPlan struct {
	Score    string       `xml:"score,attr,omitempty"`
	Selected string       `xml:"selected,attr,omitempty"`
	Elements []xmlElement `xml:",any"`
}

// xmlElement captures activities and legs in document order.
type xmlElement struct {
	XMLName  xml.Name
	Type     string `xml:"type,attr,omitempty"`
	Link     string `xml:"link,attr,omitempty"`
	X        string `xml:"x,attr,omitempty"`
	Y        string `xml:"y,attr,omitempty"`
	EndTime  string `xml:"end_time,attr,omitempty"`
	Mode     string `xml:"mode,attr,omitempty"`
	DepTime  string `xml:"dep_time,attr,omitempty"`
	TravTime string `xml:"trav_time,attr,omitempty"`
}

// ReadPlansFile reads a plans file; names ending in .gz are decompressed.
func ReadPlansFile(path string) (*Population, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	pop, err := ReadPlans(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return pop, nil
}

// ReadPlans streams a population document person by person.
func ReadPlans(r io.Reader) (*Population, error) {
	dec := xml.NewDecoder(r)
	pop := New()
	sawRoot := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse plans XML: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "population", "plans":
			sawRoot = true
		case "person":
			var xp xmlPerson
			if err := dec.DecodeElement(&xp, &start); err != nil {
				return nil, fmt.Errorf("failed to parse person: %w", err)
			}
			person, err := convertPerson(xp)
			if err != nil {
				return nil, err
			}
			if err := pop.Add(person); err != nil {
				return nil, err
			}
		default:
			if err := dec.Skip(); err != nil {
				return nil, fmt.Errorf("failed to skip <%s>: %w", start.Name.Local, err)
			}
		}
	}
	if !sawRoot {
		return nil, fmt.Errorf("missing <population> root element")
	}
	return pop, nil
}

// parseCoord parses an optional coordinate; activities given by link only
// have none.
func parseCoord(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func convertPerson(xp xmlPerson) (*Person, error) {
	person := &Person{ID: xp.ID}
	for i, xpl := range xp.Plans {
		plan := &Plan{}
		if xpl.Score != "" {
			s, err := strconv.ParseFloat(xpl.Score, 64)
			if err != nil {
				return nil, fmt.Errorf("person %s plan %d: invalid score %q", xp.ID, i, xpl.Score)
			}
			plan.Score = &s
		}
		for j, el := range xpl.Elements {
			switch el.XMLName.Local {
			case "activity", "act":
				act := &Activity{Type: el.Type, Link: el.Link, EndTime: el.EndTime}
				var err error
				if act.X, err = parseCoord(el.X); err != nil {
					return nil, fmt.Errorf("person %s plan %d element %d: invalid x %q", xp.ID, i, j, el.X)
				}
				if act.Y, err = parseCoord(el.Y); err != nil {
					return nil, fmt.Errorf("person %s plan %d element %d: invalid y %q", xp.ID, i, j, el.Y)
				}
				plan.Elements = append(plan.Elements, act)
			case "leg":
				plan.Elements = append(plan.Elements, &Leg{Mode: el.Mode, DepTime: el.DepTime, TravTime: el.TravTime})
			}
		}
		if err := plan.Validate(); err != nil {
			return nil, fmt.Errorf("person %s plan %d: %w", xp.ID, i, err)
		}
		if xpl.Selected == "yes" {
			person.Selected = i
		}
		person.Plans = append(person.Plans, plan)
	}
	return person, nil
}

// WritePlansFile writes pop to path, gzip-compressed when the name ends in .gz.
func WritePlansFile(path string, pop *Population) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	if !strings.HasSuffix(path, ".gz") {
		return WritePlans(f, pop)
	}
	gz := gzip.NewWriter(f)
	if err := WritePlans(gz, pop); err != nil {
		return err
	}
	return gz.Close()
}

// WritePlans writes a population document.
func WritePlans(w io.Writer, pop *Population) error {
	type doc struct {
		XMLName xml.Name    `xml:"population"`
		Persons []xmlPerson `xml:"person"`
	}

	var d doc
	for _, p := range pop.Persons() {
		xp := xmlPerson{ID: p.ID}
		for i, plan := range p.Plans {
			xpl := xmlPlan{Selected: "no"}
			if i == p.Selected {
				xpl.Selected = "yes"
			}
			if plan.Score != nil {
				xpl.Score = strconv.FormatFloat(*plan.Score, 'g', -1, 64)
			}
			for _, el := range plan.Elements {
				switch e := el.(type) {
				case *Activity:
					xpl.Elements = append(xpl.Elements, xmlElement{
						XMLName: xml.Name{Local: "activity"},
						Type:    e.Type,
						Link:    e.Link,
						X:       strconv.FormatFloat(e.X, 'f', -1, 64),
						Y:       strconv.FormatFloat(e.Y, 'f', -1, 64),
						EndTime: e.EndTime,
					})
				case *Leg:
					xpl.Elements = append(xpl.Elements, xmlElement{
						XMLName:  xml.Name{Local: "leg"},
						Mode:     e.Mode,
						DepTime:  e.DepTime,
						TravTime: e.TravTime,
					})
				}
			}
			xp.Plans = append(xp.Plans, xpl)
		}
		d.Persons = append(d.Persons, xp)
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "\t")
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode plans: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
