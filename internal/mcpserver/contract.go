package mcpserver

// ManuscriptFormat describes the Markdown accepted by create_manuscript.
const ManuscriptFormat = `# Codex Manuscript Format

A manuscript is created from a Markdown document. The document is rendered
to HTML and appended to the archive.

## Structure

` + "```" + `markdown
---
category: Filosofia          # OPTIONAL - defaults to "Original"
status: Ancestral            # OPTIONAL - badge shown on the card
tags: [Excel, Word]          # OPTIONAL - list or comma separated string
pinned: false                # OPTIONAL
favorite: false              # OPTIONAL
title: O Vazio               # OPTIONAL - overrides the heading below
---

# Title of the manuscript

Body in Markdown. #InlineTags are collected when no tags are given above.
` + "```" + `

## Rules

1. Frontmatter is optional. When present the ` + "`---`" + ` fence must open the document.
2. The title is taken from frontmatter, then from the first ` + "`# heading`" + `
   (which is removed from the body). Without either it is "Novo Fragmento".
3. The body must not be empty.
4. Tags are matched exactly by the kanban board. Use the board labels
   (Original, Conceito inicial, Dicas de Site, Gestão de Tarefas, Monday,
   Pacote Office, Excel, Word) to place a manuscript in a column.
5. GitHub flavoured Markdown and :emoji: shortcodes are supported.

## Images

Upload images with the ` + "`upload_image`" + ` tool. It returns ` + "`markup`" + `, an ` + "`<img>`" + `
element that can be pasted into the body as is, and ` + "`url`" + `, a path of the form
` + "`/attachments/<name>`" + `. Supported formats: png, jpg, jpeg, gif, webp, svg.
`
