package web

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexHTML))
}

const indexHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>docmill</title>
<style>
  body { font-family: system-ui, sans-serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; color: #222; }
  h1 { font-size: 1.4rem; }
  fieldset { border: 1px solid #ccc; border-radius: 6px; margin-bottom: 1rem; }
  label { display: block; margin: 0.4rem 0; }
  input[type=text], select { width: 100%; padding: 0.3rem; box-sizing: border-box; }
  button { padding: 0.5rem 1.2rem; cursor: pointer; }
  #status { margin: 1rem 0; font-weight: bold; }
  #result { white-space: pre-wrap; background: #f6f6f6; border: 1px solid #ddd; border-radius: 6px; padding: 1rem; overflow-x: auto; }
</style>
</head>
<body>
<h1>docmill &mdash; convert documents to markdown</h1>
<form id="form">
  <fieldset>
    <legend>Source</legend>
    <label>File <input type="file" name="file"></label>
    <label>or URL <input type="text" name="url" placeholder="https://example.com/report.pdf"></label>
  </fieldset>
  <fieldset>
    <legend>Options</legend>
    <label>Output
      <select name="to">
        <option value="markdown">markdown</option>
        <option value="html">html</option>
        <option value="text">text</option>
        <option value="json">json</option>
      </select>
    </label>
    <label>Pipeline
      <select name="pipeline">
        <option value="standard">standard</option>
        <option value="vlm">vlm</option>
      </select>
    </label>
    <label>OCR engine
      <select name="ocr_engine">
        <option value="">(server default)</option>
        <option value="tesseract">tesseract</option>
        <option value="easyocr">easyocr</option>
        <option value="rapidocr">rapidocr</option>
        <option value="ocrmac">ocrmac</option>
        <option value="remote">remote</option>
      </select>
    </label>
    <label><input type="checkbox" name="no_ocr" value="true"> disable OCR</label>
    <label><input type="checkbox" name="enrich_picture_description" value="true"> describe pictures</label>
    <label><input type="checkbox" name="enrich_picture_classes" value="true"> classify pictures</label>
  </fieldset>
  <button type="submit">Convert</button>
</form>
<div id="status"></div>
<pre id="result"></pre>
<script>
const form = document.getElementById('form');
const status = document.getElementById('status');
const result = document.getElementById('result');

form.addEventListener('submit', async (e) => {
  e.preventDefault();
  status.textContent = 'submitting...';
  result.textContent = '';
  const data = new FormData(form);
  if (!data.get('file') || !data.get('file').name) data.delete('file');
  const resp = await fetch('/api/convert', { method: 'POST', body: data });
  const body = await resp.json();
  if (!resp.ok) { status.textContent = 'error: ' + body.error; return; }
  poll(body.job_id);
});

async function poll(jobID) {
  const resp = await fetch('/api/jobs/' + jobID);
  const job = await resp.json();
  status.textContent = job.status + (job.phase ? ': ' + job.phase : '');
  if (job.status === 'failed') {
    result.textContent = (job.errors || []).join('\n');
    return;
  }
  if (job.status !== 'completed' && job.status !== 'partial') {
    setTimeout(() => poll(jobID), 750);
    return;
  }
  if (job.status === 'partial') {
    status.textContent += ' (' + (job.errors || []).join('; ') + ')';
  }
  const res = await fetch('/api/jobs/' + jobID + '/result');
  result.textContent = await res.text();
}
</script>
</body>
</html>
`
