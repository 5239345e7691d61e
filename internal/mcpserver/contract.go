package mcpserver

// ComponentFormatContract describes the work document and component format
// that LLM consumers should follow when editing works.
const ComponentFormatContract = `# Pagecraft Component Format Contract

A work is one page built from absolutely positioned components. Edits go
through the live editor of the work and are written to disk by save_work.

## Work document

` + "```" + `json
{
  "id": "0b7c...",
  "title": "Spring campaign",
  "desc": "Landing page for the spring sale",
  "coverImg": "/assets/cover.png",
  "isTemplate": false,
  "content": {
    "components": [
      {
        "id": "a1f3...",
        "name": "l-text",
        "layerName": "Layer 1",
        "isHidden": false,
        "isLocked": false,
        "props": { "text": "Hello", "top": "20px", "left": "40px", "fontSize": "14px" }
      }
    ],
    "props": { "backgroundColor": "#ffffff", "height": "560px" },
    "setting": {}
  }
}
` + "```" + `

## Components

| name | key props |
|---|---|
| l-text | text, fontSize, fontFamily, fontWeight, color, textAlign, lineHeight |
| l-image | src, width, height |
| l-shape | backgroundColor, width, height, borderRadius |

Common props: position (absolute), top, left, width, height, opacity,
borderStyle, borderColor, borderWidth, boxShadow, actionType, url.

## Rules

1. **Lengths are CSS strings** with a unit: ` + "`" + `"20px"` + "`" + `, not ` + "`" + `20` + "`" + `.
   move_component reads the leading integer of top/left.
2. **Ids are assigned by the editor.** add_component ignores any id you pass;
   use the id it returns.
3. **Layer names** default to ` + "`" + `Layer N` + "`" + `; pasted copies get a ` + "`" + ` Copy` + "`" + ` suffix.
4. **Paired updates** set several props as one undo step: key ` + "`" + `top,left` + "`" + ` with
   value ` + "`" + `["10px","20px"]` + "`" + `.
5. **Undo granularity:** updates to the same props of the same component that
   arrive close together merge into one history entry. Adding, deleting and
   pasting are one entry each. The history keeps the most recent entries only.
6. **Attributes** (layerName, name, isHidden, isLocked), page settings and
   page title/desc/coverImg are not recorded in history.
7. **Nothing is persisted** until save_work. Reloading a work clears its history.

## Images

- Upload with the ` + "`" + `upload_asset` + "`" + ` tool and use the returned URL as the ` + "`" + `src` + "`" + ` prop.
- Assets live under ` + "`" + `/assets/` + "`" + ` (flat, no sub-folders).
- Supported formats: png, jpg, jpeg, gif, webp, svg.
`
