package vectorindex

const (
	queryImageNeighbors = `
		SELECT
			ref_id,
			ref_kind,
			1 - (embedding <=> $1) AS similarity
		FROM image_embeddings
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	queryTextNeighbors = `
		SELECT
			sign_code,
			1 - (embedding <=> $1) AS similarity
		FROM text_embeddings
		ORDER BY embedding <=> $1
		LIMIT $2
	`

	// vector columns store their dimension in atttypmod
	queryColumnDimensions = `
		SELECT a.atttypmod
		FROM pg_attribute a
		JOIN pg_class c ON a.attrelid = c.oid
		WHERE c.relname = $1 AND a.attname = 'embedding'
	`
)
