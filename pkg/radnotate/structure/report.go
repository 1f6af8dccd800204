package structure

// Report summarizes a document's structure: root identity, element census,
// and which key annotation elements are present.
type Report struct {
	RootTag           string
	Namespace         string
	TotalElements     int
	ElementCounts     map[string]int
	HasResponseHeader bool
	HasReadingSession bool
	HasUnblindedRead  bool
	IsLIDCFormat      bool
}

// Analyze walks the whole document and builds a structure report. Element
// counts are keyed by local name regardless of namespace.
func Analyze(doc *Document) Report {
	rep := Report{
		RootTag:       doc.RootLocal(),
		Namespace:     doc.Namespace,
		ElementCounts: make(map[string]int),
		IsLIDCFormat:  doc.RootLocal() == lidcRootTag,
	}

	var walk func(*Element)
	walk = func(e *Element) {
		rep.TotalElements++
		rep.ElementCounts[e.Name.Local]++
		for _, c := range e.Children {
			walk(c)
		}
	}
	walk(doc.Root)

	rep.HasResponseHeader = len(doc.Descendants(doc.Root, "ResponseHeader")) > 0
	rep.HasReadingSession = len(doc.Descendants(doc.Root, "readingSession")) > 0
	rep.HasUnblindedRead = len(doc.Descendants(doc.Root, "unblindedReadNodule")) > 0

	return rep
}
