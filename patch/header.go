package patch

import "bytes"

// Header extracts the free-form text that precedes the first "Index:" or
// "---" line of a patch file: the patch's commit message, written by quilt
// new/edit and preserved verbatim across refresh. It returns nil if the
// patch has no such preamble.
func Header(data []byte) ([]byte, error) {
	lines := bytes.SplitAfter(data, []byte("\n"))
	var header bytes.Buffer
	for _, line := range lines {
		trimmed := bytes.TrimRight(line, "\n")
		if bytes.HasPrefix(trimmed, []byte("Index:")) || bytes.HasPrefix(trimmed, []byte("--- ")) {
			break
		}
		header.Write(line)
	}
	if header.Len() == 0 {
		return nil, nil
	}
	return header.Bytes(), nil
}
