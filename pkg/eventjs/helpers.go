package eventjs

const helpersJS = `
(function(){
  function field(obj, path) {
    if (!obj || typeof path !== "string" || path === "") return null;
    const parts = path.split(".");
    let cur = obj;
    for (const p of parts) {
      if (cur == null) return null;
      cur = cur[p];
    }
    return (cur === undefined) ? null : cur;
  }

  function param(job, name) {
    const params = field(job, "Parameters");
    if (!params || typeof params.length !== "number") return null;
    for (let i = 0; i < params.length; i++) {
      if (params[i] && params[i].Name === name) return params[i].Value;
    }
    return null;
  }

  function isTerminal(status) {
    return ["Success", "Fail", "Stopped", "Skipped", "Disabled"].indexOf(status) >= 0;
  }

  globalThis.cds = {
    field,
    param,
    isTerminal,
  };
})();
`
