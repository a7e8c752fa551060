package chunk

import (
	"bytes"
)

// plainTextChunk splits file content into fixed line-window chunks with no
// AST awareness. It is the fallback path for non-UTF8 content, unsupported
// languages, and files tree-sitter fails to parse, so indexing never stalls
// on a single bad file.
func plainTextChunk(file *FileInput, cfg SplitterConfig) ([]*Chunk, error) {
	lines := bytes.Split(file.Content, []byte("\n"))
	if len(lines) == 0 {
		return nil, nil
	}

	const windowLines = 60
	const overlapLines = 6

	var chunks []*Chunk
	lineStart := computeLineOffsets(file.Content, lines)

	for start := 0; start < len(lines); start += windowLines - overlapLines {
		end := start + windowLines
		if end > len(lines) {
			end = len(lines)
		}

		startByte := lineStart[start]
		var endByte uint32
		if end >= len(lines) {
			endByte = uint32(len(file.Content))
		} else {
			endByte = lineStart[end]
		}

		raw := string(file.Content[startByte:endByte])
		if len(bytes.TrimSpace([]byte(raw))) == 0 {
			if end >= len(lines) {
				break
			}
			continue
		}

		chunks = append(chunks, &Chunk{
			ID:          chunkID(file.Path, raw),
			FilePath:    file.Path,
			Content:     raw,
			RawContent:  raw,
			ContentType: ContentTypeText,
			Language:    file.Language,
			StartLine:   start + 1,
			EndLine:     end,
			StartByte:   startByte,
			EndByte:     endByte,
		})

		if end >= len(lines) {
			break
		}
	}

	return chunks, nil
}

// computeLineOffsets returns, for each line index, the byte offset in
// content where that line begins.
func computeLineOffsets(content []byte, lines [][]byte) []uint32 {
	offsets := make([]uint32, len(lines))
	var b uint32
	for i, line := range lines {
		offsets[i] = b
		b += uint32(len(line)) + 1
	}
	return offsets
}
